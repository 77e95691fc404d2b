package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"envkit/internal/catalog"
	"envkit/internal/paths"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate the prerequisite catalog",
	}
	cmd.AddCommand(newCatalogValidateCmd())
	cmd.AddCommand(newCatalogListCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a catalog file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCatalogValidate,
	}
}

// runCatalogValidate deliberately bypasses newSession: a broken catalog must
// still be validatable.
func runCatalogValidate(cmd *cobra.Command, args []string) error {
	path, err := catalogPath(args)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	result, err := catalog.ValidateBytes(data)
	if err != nil {
		return err
	}

	if outputJSON {
		out, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return fmt.Errorf("encode json: %w", merr)
		}
		cmd.Println(string(out))
		if !result.Valid {
			return fmt.Errorf("catalog is invalid")
		}
		return nil
	}

	if result.Valid {
		// Schema passed; run the semantic checks too.
		if _, perr := catalog.Parse(data); perr != nil {
			return perr
		}
		cmd.Printf("%s: valid\n", path)
		return nil
	}

	cmd.Printf("%s: %d issue(s)\n", path, len(result.Issues))
	for _, issue := range result.Issues {
		loc := issue.Path
		if loc == "" {
			loc = "/"
		}
		cmd.Printf("  %s: %s (%s)\n", loc, issue.Message, issue.Keyword)
	}
	return fmt.Errorf("catalog is invalid")
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog prerequisites",
		Args:  cobra.NoArgs,
		RunE:  runCatalogList,
	}
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if outputJSON {
		out, merr := json.MarshalIndent(s.Catalog.Prerequisites, "", "  ")
		if merr != nil {
			return fmt.Errorf("encode json: %w", merr)
		}
		cmd.Println(string(out))
		return nil
	}

	for _, pre := range s.Catalog.Prerequisites {
		scope := "global"
		if pre.PerVersion {
			scope = "per-version"
		}
		cmd.Printf("%-24s %-12s %d step(s)\n", pre.ID, scope, len(pre.Steps))
	}
	return nil
}

// catalogPath resolves the catalog file to validate: an explicit argument
// wins, otherwise the project's configured location.
func catalogPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return "", err
	}
	return pp.CatalogFile, nil
}
