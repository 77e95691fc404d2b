package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectPaths captures canonical locations for an envkit project.
type ProjectPaths struct {
	Root        string
	ConfigFile  string
	CatalogFile string
	MetaDir     string
	LogsDir     string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".envkit")
	return ProjectPaths{
		Root:        root,
		ConfigFile:  filepath.Join(root, "envkit.yaml"),
		CatalogFile: filepath.Join(root, "envkit.catalog.json"),
		MetaDir:     metaDir,
		LogsDir:     filepath.Join(metaDir, "logs"),
	}
}

// ApplyConfig overrides the default catalog location with the configured one.
// Relative values resolve against the project root.
func ApplyConfig(pp ProjectPaths, catalogFile string) ProjectPaths {
	if catalogFile != "" {
		pp.CatalogFile = resolveProjectPath(pp.Root, catalogFile)
	}
	return pp
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureMetaDirs creates the metadata directories used during a run.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
