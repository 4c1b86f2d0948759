package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/distill/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and rebuild the artifact index",
	Long: `Every space keeps one index document listing its artifacts. The index
is rebuilt automatically when missing; use rebuild to force a fresh scan
of the space, for example after artifacts were edited outside distill.`,
}

var indexShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the artifacts recorded in the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexShow,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from a listing of the space",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexShowCmd.Flags().Bool("json", false, "print the index document as JSON")
	indexCmd.AddCommand(indexShowCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexShow(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	res, err := indexService.Load(cmd.Context(), space)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON { //nolint:errcheck // registered in init
		return printJSON(cmd, res.Index)
	}

	if res.Rebuilt {
		cmd.Println("Index was missing and has been rebuilt.")
	}
	entries := append([]domain.ArtifactIndexEntry(nil), res.Index.Artifacts...)
	if len(entries) == 0 {
		cmd.Println("No artifacts in this space.")
		return nil
	}
	domain.SortByRecency(entries)

	cmd.Printf("Artifacts in %s (%d):\n", space, len(entries))
	for _, e := range entries {
		date := e.ContentDateISO
		if date == "" {
			date = "no date"
		}
		cmd.Printf("  %s  [%s] %s (%s)\n", e.ID, e.Kind, e.Title, date)
		cmd.Printf("      loops: %d, risks: %d, decisions: %d\n", e.OpenLoopsCount, e.RisksCount, e.DecisionsCount)
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	res, err := indexService.RebuildAndWrite(cmd.Context(), space)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	cmd.Printf("Rebuilt index: %d artifact(s) from %d document(s) scanned\n", len(res.Index.Artifacts), res.Scanned)
	if res.Partial {
		cmd.Println("Warning: the scan cap was reached; some artifacts may be missing from the index.")
	}
	return nil
}
