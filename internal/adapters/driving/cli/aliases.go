package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Manage entity aliases",
	Long: `Aliases map the names people actually use ("acme", "ACME Corp.") onto
one canonical entity. Generated artifacts and entity filters are
canonicalised through the alias table of the space.`,
}

var aliasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the alias table",
	Args:  cobra.NoArgs,
	RunE:  runAliasesList,
}

var aliasesAddCmd = &cobra.Command{
	Use:   "add [alias] [canonical]",
	Short: "Add one alias",
	Args:  cobra.ExactArgs(2),
	RunE:  runAliasesAdd,
}

var aliasesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import aliases from a YAML file",
	Long: `Import aliases from a YAML file. The file holds either a list of rows
or a mapping with an "aliases" list:

  aliases:
    - alias: acme
      canonical: acme corporation
      displayName: ACME Corporation
      type: org`,
	Args: cobra.ExactArgs(1),
	RunE: runAliasesImport,
}

var aliasesResolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Show the canonical form of a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runAliasesResolve,
}

func init() {
	aliasesAddCmd.Flags().String("display-name", "", "display name of the canonical entity")
	aliasesAddCmd.Flags().String("type", "", "entity type, e.g. org or person")
	aliasesListCmd.Flags().Bool("json", false, "print the alias table as JSON")

	aliasesCmd.AddCommand(aliasesListCmd)
	aliasesCmd.AddCommand(aliasesAddCmd)
	aliasesCmd.AddCommand(aliasesImportCmd)
	aliasesCmd.AddCommand(aliasesResolveCmd)
	rootCmd.AddCommand(aliasesCmd)
}

func runAliasesList(cmd *cobra.Command, _ []string) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	table, err := aliasService.Load(cmd.Context(), space)
	if err != nil {
		return fmt.Errorf("failed to load aliases: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON { //nolint:errcheck // registered in init
		return printJSON(cmd, table)
	}

	if len(table.Aliases) == 0 {
		cmd.Println("No aliases configured.")
		return nil
	}
	cmd.Println("Aliases:")
	for _, row := range table.Aliases {
		line := fmt.Sprintf("  %s -> %s", row.Alias, row.Canonical)
		if row.DisplayName != "" {
			line += fmt.Sprintf(" (%s)", row.DisplayName)
		}
		if row.Type != "" {
			line += " [" + row.Type + "]"
		}
		cmd.Println(line)
	}
	return nil
}

func runAliasesAdd(cmd *cobra.Command, args []string) error {
	display, _ := cmd.Flags().GetString("display-name") //nolint:errcheck // registered in init
	typ, _ := cmd.Flags().GetString("type")             //nolint:errcheck // registered in init
	return addAliases(cmd, []domain.AliasRow{{
		Alias:       args[0],
		Canonical:   args[1],
		DisplayName: display,
		Type:        typ,
	}})
}

// aliasFile accepts both a bare list and an {aliases: [...]} mapping.
type aliasFile struct {
	Aliases []domain.AliasRow `yaml:"aliases"`
}

func runAliasesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	rows, err := parseAliasFile(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	if len(rows) == 0 {
		return errors.New("no aliases found in file")
	}
	return addAliases(cmd, rows)
}

func parseAliasFile(data []byte) ([]domain.AliasRow, error) {
	var list []domain.AliasRow
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Aliases, nil
}

func addAliases(cmd *cobra.Command, rows []domain.AliasRow) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	res, err := aliasService.Add(cmd.Context(), space, rows)
	if err != nil {
		return fmt.Errorf("failed to add aliases: %w", err)
	}
	printAddResult(cmd, res)
	return nil
}

func printAddResult(cmd *cobra.Command, res *driving.AddAliasesResult) {
	cmd.Printf("Added %d alias(es)\n", len(res.Added))
	for _, row := range res.Added {
		cmd.Printf("  + %s -> %s\n", row.Alias, row.Canonical)
	}
	if len(res.Rejected) > 0 {
		cmd.Printf("Rejected %d alias(es) that were empty or equal to their canonical name:\n", len(res.Rejected))
		for _, row := range res.Rejected {
			cmd.Printf("  - %s\n", row.Alias)
		}
	}
}

func runAliasesResolve(cmd *cobra.Command, args []string) error {
	if aliasService == nil {
		return errors.New("alias service not configured")
	}
	space, err := resolveSpace()
	if err != nil {
		return err
	}

	entity, err := aliasService.Resolve(cmd.Context(), space, domain.Entity{Name: args[0]})
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", args[0], err)
	}
	cmd.Println(entity.Name)
	return nil
}
