package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"envkit/internal/config"
	"envkit/internal/paths"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadProjectConfig()
	if err != nil {
		return err
	}

	if outputJSON {
		out, merr := json.MarshalIndent(cfg, "", "  ")
		if merr != nil {
			return fmt.Errorf("encode json: %w", merr)
		}
		cmd.Println(string(out))
		return nil
	}

	out, err := cfg.Marshal()
	if err != nil {
		return err
	}
	cmd.Print(string(out))
	return nil
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors and warnings",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	}
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadProjectConfig()
	if err != nil {
		return err
	}

	results := cfg.Validate()

	if outputJSON {
		out, merr := json.MarshalIndent(results, "", "  ")
		if merr != nil {
			return fmt.Errorf("encode json: %w", merr)
		}
		cmd.Println(string(out))
	} else if len(results) == 0 {
		cmd.Printf("%s: ok\n", path)
	} else {
		for _, r := range results {
			cmd.Printf("%s: %s\n", r.Level, r.Message)
		}
	}

	if config.HasErrors(results) {
		return fmt.Errorf("configuration has errors")
	}
	return nil
}

func loadProjectConfig() (config.Config, string, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, pp.ConfigFile, nil
}
