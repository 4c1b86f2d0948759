package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/logger"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query artifacts by date, entity and extracted items",
	Long: `Filter the artifacts of a space and list their matching open loops,
risks and decisions.

The entity filter accepts aliases; it is rewritten to the canonical name
before matching. Tri-state filters (--open-loops, --risks, --decisions)
take yes or no; leaving them out means "don't care".

Examples:
  distill query --entity acme --open-loops yes --loop-status open
  distill query --from 2024-01-01 --to 2024-03-31 --severity high
  distill query --kind synthesis --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	addFilterFlags(queryCmd)
	queryCmd.Flags().Bool("json", false, "print the raw response as JSON")
	rootCmd.AddCommand(queryCmd)
}

// addFilterFlags registers the structured query flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("from", "", "first content date (YYYY-MM-DD)")
	f.String("to", "", "last content date (YYYY-MM-DD)")
	f.StringSlice("kind", nil, "artifact kinds: summary, synthesis")
	f.String("entity", "", "organisation or person; aliases resolve to the canonical name")
	f.StringSlice("tag", nil, "match artifacts carrying any of these tags")
	f.StringSlice("participant", nil, "match artifacts listing any of these participants")
	f.String("open-loops", "", "require (yes) or exclude (no) artifacts with open loops")
	f.String("risks", "", "require (yes) or exclude (no) artifacts with risks")
	f.String("decisions", "", "require (yes) or exclude (no) artifacts with decisions")
	f.String("loop-status", "", "open loop status: open or closed")
	f.String("due-from", "", "first open loop due date")
	f.String("due-to", "", "last open loop due date")
	f.String("severity", "", "risk severity: low, medium or high")
	f.String("decided-from", "", "first decision date")
	f.String("decided-to", "", "last decision date")
	f.IntP("limit", "n", 0, "maximum artifacts (default 10, max 50)")
	f.Int("items", 0, "maximum matched items per list (default 5, max 50)")
}

// filterFromFlags builds a query request from the flags added by addFilterFlags.
func filterFromFlags(cmd *cobra.Command) (domain.QueryRequest, error) {
	f := cmd.Flags()
	var req domain.QueryRequest

	str := func(name string) string {
		v, _ := f.GetString(name) //nolint:errcheck // flag registered by addFilterFlags
		return v
	}
	slice := func(name string) []string {
		v, _ := f.GetStringSlice(name) //nolint:errcheck // flag registered by addFilterFlags
		return v
	}

	req.DateRange = rangeOf(str("from"), str("to"))
	for _, k := range slice("kind") {
		req.Kind = append(req.Kind, domain.ArtifactKind(k))
	}
	req.Entity = str("entity")
	req.Tags = slice("tag")
	req.Participants = slice("participant")
	req.OpenLoopStatus = domain.LoopStatus(str("loop-status"))
	req.OpenLoopDueRange = rangeOf(str("due-from"), str("due-to"))
	req.RiskSeverity = domain.Severity(str("severity"))
	req.DecisionDateRange = rangeOf(str("decided-from"), str("decided-to"))

	var err error
	if req.HasOpenLoops, err = parseTriState("open-loops", str("open-loops")); err != nil {
		return req, err
	}
	if req.HasRisks, err = parseTriState("risks", str("risks")); err != nil {
		return req, err
	}
	if req.HasDecisions, err = parseTriState("decisions", str("decisions")); err != nil {
		return req, err
	}

	req.LimitArtifacts, _ = f.GetInt("limit")        //nolint:errcheck // registered above
	req.LimitItemsPerArtifact, _ = f.GetInt("items") //nolint:errcheck // registered above
	return req, nil
}

// filterChanged reports whether any filter flag was set explicitly.
func filterChanged(cmd *cobra.Command) bool {
	for _, name := range []string{
		"from", "to", "kind", "entity", "tag", "participant", "open-loops", "risks", "decisions",
		"loop-status", "due-from", "due-to", "severity", "decided-from", "decided-to", "limit", "items",
	} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func rangeOf(from, to string) *domain.DateRange {
	if from == "" && to == "" {
		return nil
	}
	return &domain.DateRange{From: from, To: to}
}

func parseTriState(name, s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "yes", "y", "true", "1":
		v := true
		return &v, nil
	case "no", "n", "false", "0":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("--%s: expected yes or no, got %q", name, s)
	}
}

func runQuery(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}
	req, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	resp, err := queryService.Query(cmd.Context(), space, req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	logger.Debug("query: %d documents read, %d results", resp.DocumentsRead, len(resp.Results))

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON { //nolint:errcheck // registered in init
		return printJSON(cmd, resp)
	}
	printQueryResponse(cmd, resp)
	return nil
}

func printQueryResponse(cmd *cobra.Command, resp *domain.QueryResponse) {
	if resp.Query.Entity != "" {
		cmd.Printf("Entity: %s\n", resp.Query.Entity)
	}
	t := resp.Totals
	cmd.Printf("Matched %d artifact(s): %d open loop(s), %d risk(s), %d decision(s)\n",
		t.ArtifactsMatched, t.OpenLoopsMatched, t.RisksMatched, t.DecisionsMatched)
	if resp.Partial {
		cmd.Println("Note: the index was rebuilt from a partial listing; results may be incomplete.")
	}
	if len(resp.Results) == 0 {
		cmd.Println("No matching artifacts.")
		return
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		cmd.Println()
		cmd.Printf("%d. [%s] %s\n", i+1, r.Kind, r.Title)
		cmd.Printf("   ID: %s\n", r.ArtifactID)
		if r.ContentDateISO != "" {
			cmd.Printf("   Date: %s\n", r.ContentDateISO)
		}
		if len(r.Entities) > 0 {
			names := make([]string, len(r.Entities))
			for j, e := range r.Entities {
				names[j] = e.Name
			}
			cmd.Printf("   Entities: %s\n", strings.Join(names, ", "))
		}
		if len(r.Matches.OpenLoops) > 0 {
			cmd.Println("   Open loops:")
			for _, l := range r.Matches.OpenLoops {
				cmd.Printf("     - %s [%s]%s\n", l.Text, l.Status, itemSuffix(l.Owner, "due", l.DueDateISO))
			}
		}
		if len(r.Matches.Risks) > 0 {
			cmd.Println("   Risks:")
			for _, rk := range r.Matches.Risks {
				cmd.Printf("     - %s [%s]%s\n", rk.Text, rk.Severity, itemSuffix(rk.Owner, "", ""))
			}
		}
		if len(r.Matches.Decisions) > 0 {
			cmd.Println("   Decisions:")
			for _, d := range r.Matches.Decisions {
				cmd.Printf("     - %s%s\n", d.Text, itemSuffix(d.Owner, "on", d.DateISO))
			}
		}
	}
}

func itemSuffix(owner, dateLabel, date string) string {
	var parts []string
	if owner != "" {
		parts = append(parts, "owner: "+owner)
	}
	if date != "" {
		parts = append(parts, dateLabel+": "+date)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
