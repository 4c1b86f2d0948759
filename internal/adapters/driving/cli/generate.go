package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarise a call transcript or email thread",
	Long: `Summarise source text into a summary artifact with entities, decisions,
open loops and risks. The text is read from the file argument, or from
stdin when the argument is "-" or missing.

Examples:
  distill summarize notes.txt --title "Acme renewal" --date 2024-05-01
  pbpaste | distill summarize --tag renewal --participant alice`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [artifact-id...]",
	Short: "Synthesise across existing artifacts",
	Long: `Create a synthesis artifact from two or more existing artifacts following
an instruction. Citations in the synthesis only reference the given artifacts.

Example:
  distill synthesize a1 a2 a3 --instruction "How has pricing sentiment changed?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSynthesize,
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question over your artifacts",
	Long: `Answer a question grounded in artifacts. Pick the context explicitly with
--artifact, or select it with the same filter flags as query. With neither,
the most recent artifacts are used.

Examples:
  distill chat "What did Acme push back on?" --entity acme
  distill chat "Summarise the risks" --artifact a1 --artifact a2`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var backfillDateCmd = &cobra.Command{
	Use:   "backfill-date [artifact-id] [date]",
	Short: "Set the content date of an artifact",
	Long: `Set the content date (YYYY-MM-DD) of an artifact that was created without
one, and refresh its index entry so date filters find it.`,
	Args: cobra.ExactArgs(2),
	RunE: runBackfillDate,
}

func init() {
	summarizeCmd.Flags().String("title", "", "artifact title")
	summarizeCmd.Flags().String("date", "", "content date of the source (YYYY-MM-DD)")
	summarizeCmd.Flags().StringSlice("tag", nil, "tags to attach")
	summarizeCmd.Flags().StringSlice("participant", nil, "participants of the call or thread")
	summarizeCmd.Flags().String("source-ref", "", "reference to the source, e.g. a URL or file name")
	summarizeCmd.Flags().Bool("json", false, "print the created artifact as JSON")

	synthesizeCmd.Flags().String("instruction", "", "what the synthesis should answer (required)")
	synthesizeCmd.Flags().String("title", "", "artifact title")
	synthesizeCmd.Flags().StringSlice("tag", nil, "tags to attach")
	synthesizeCmd.Flags().Bool("json", false, "print the created artifact as JSON")

	chatCmd.Flags().StringSlice("artifact", nil, "artifact ids to answer from")
	addFilterFlags(chatCmd)
	chatCmd.Flags().Bool("json", false, "print the answer as JSON")

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(backfillDateCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	if generationService == nil {
		return errors.New("generation service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	text, err := readSource(cmd, args)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	req := driving.SummarizeRequest{Text: text}
	req.Title, _ = f.GetString("title")                   //nolint:errcheck // registered in init
	req.ContentDateISO, _ = f.GetString("date")           //nolint:errcheck // registered in init
	req.Tags, _ = f.GetStringSlice("tag")                 //nolint:errcheck // registered in init
	req.Participants, _ = f.GetStringSlice("participant") //nolint:errcheck // registered in init
	req.SourceRef, _ = f.GetString("source-ref")          //nolint:errcheck // registered in init

	created, err := generationService.Summarize(cmd.Context(), space, req)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	return printCreated(cmd, created)
}

// readSource reads the file argument, or stdin for "-" or no argument.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("source text is empty")
	}
	return text, nil
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	if generationService == nil {
		return errors.New("generation service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	req := driving.SynthesizeRequest{ArtifactIDs: args}
	req.Instruction, _ = f.GetString("instruction") //nolint:errcheck // registered in init
	req.Title, _ = f.GetString("title")             //nolint:errcheck // registered in init
	req.Tags, _ = f.GetStringSlice("tag")           //nolint:errcheck // registered in init
	if strings.TrimSpace(req.Instruction) == "" {
		return errors.New("--instruction is required")
	}

	created, err := generationService.Synthesize(cmd.Context(), space, req)
	if err != nil {
		return fmt.Errorf("synthesize failed: %w", err)
	}
	return printCreated(cmd, created)
}

func printCreated(cmd *cobra.Command, created *driving.CreatedArtifact) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON { //nolint:errcheck // every caller registers --json
		data, err := domain.EncodeArtifact(created.Artifact)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	a := created.Artifact
	cmd.Printf("Created %s: %s\n", a.Kind, a.ID)
	cmd.Printf("  Title: %s\n", a.Title)
	if a.ContentDateISO != "" {
		cmd.Printf("  Date: %s\n", a.ContentDateISO)
	}
	cmd.Printf("  Document: %s\n", created.DocumentID)
	cmd.Printf("  Entities: %d, decisions: %d, open loops: %d, risks: %d\n",
		len(a.Entities), len(a.Decisions), len(a.OpenLoops), len(a.Risks))
	if body := a.Body(); body != "" {
		cmd.Println()
		cmd.Println(body)
	}
	if a.Synthesis != nil && len(a.Synthesis.Citations) > 0 {
		cmd.Println()
		printCitations(cmd, a.Synthesis.Citations)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	if generationService == nil {
		return errors.New("generation service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	req := driving.ChatRequest{Question: args[0]}
	req.ArtifactIDs, _ = cmd.Flags().GetStringSlice("artifact") //nolint:errcheck // registered in init
	if len(req.ArtifactIDs) == 0 && filterChanged(cmd) {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		req.Filter = &filter
	}

	answer, err := generationService.Chat(cmd.Context(), space, req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON { //nolint:errcheck // registered in init
		return printJSON(cmd, answer)
	}
	cmd.Println(answer.Answer)
	if len(answer.Citations) > 0 {
		cmd.Println()
		printCitations(cmd, answer.Citations)
	}
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	cmd.Println("Sources:")
	for i, c := range citations {
		if c.Excerpt != "" {
			cmd.Printf("  [%d] %s: %q\n", i+1, c.ArtifactID, c.Excerpt)
		} else {
			cmd.Printf("  [%d] %s\n", i+1, c.ArtifactID)
		}
	}
}

func runBackfillDate(cmd *cobra.Command, args []string) error {
	if generationService == nil {
		return errors.New("generation service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	updated, err := generationService.BackfillContentDate(cmd.Context(), space, args[0], args[1])
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	cmd.Printf("Set content date of %s to %s\n", updated.Artifact.ID, updated.Artifact.ContentDateISO)
	return nil
}
