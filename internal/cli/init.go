package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"envkit/internal/config"
	"envkit/internal/paths"
)

// starterCatalog gives a new project a working per-version prerequisite and
// the version manager it depends on.
const starterCatalog = `{
  "version": 1,
  "prerequisites": [
    {
      "id": "fnm",
      "name": "Fast Node Manager",
      "per_version": false,
      "check": {
        "command": "fnm --version",
        "version_pattern": "fnm ([0-9]+\\.[0-9]+\\.[0-9]+)"
      },
      "steps": [
        {
          "name": "install-fnm",
          "commands": ["curl -fsSL https://fnm.vercel.app/install | bash"],
          "progress": {"estimated_s": 30}
        }
      ]
    },
    {
      "id": "project-cli",
      "name": "Project CLI",
      "per_version": true,
      "check": {
        "command": "project-cli --version"
      },
      "steps": [
        {
          "name": "install-runtime",
          "command_template": "fnm install {version}",
          "weight": 2,
          "progress": {"milestones": ["Downloading", "Extracting", "Installed"]}
        },
        {
          "name": "install-cli",
          "commands": ["npm install -g project-cli"],
          "weight": 3,
          "progress": {"estimated_s": 60}
        }
      ]
    }
  ]
}
`

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config and starter catalog in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfgBytes, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := writeInitFile(pp.ConfigFile, cfgBytes, force); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", pp.ConfigFile)

	if err := writeInitFile(pp.CatalogFile, []byte(starterCatalog), force); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", pp.CatalogFile)

	return nil
}

func writeInitFile(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
