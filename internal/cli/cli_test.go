package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		projectDir = ""
		outputJSON = false
		noTUI = false
	})

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitWritesConfigAndCatalog(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "init", "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "envkit.yaml")
	assert.Contains(t, out, "envkit.catalog.json")

	_, err = os.Stat(filepath.Join(dir, "envkit.yaml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "envkit.catalog.json"))
	require.NoError(t, err)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "init", "--project", dir)
	require.NoError(t, err)

	_, err = execute(t, "init", "--project", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", "--project", dir, "--force")
	require.NoError(t, err)
}

func TestCatalogValidateAcceptsStarterCatalog(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "init", "--project", dir)
	require.NoError(t, err)

	out, err := execute(t, "catalog", "validate", "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestCatalogValidateReportsIssues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1, "prerequisites": [{"id": "x"}]}`), 0o644))

	out, err := execute(t, "catalog", "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "issue")
}

func TestConfigShowPrintsDefaults(t *testing.T) {
	out, err := execute(t, "config", "show", "--project", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "required_majors")
	assert.Contains(t, out, "exec_template")
}

func TestConfigValidateCleanByDefault(t *testing.T) {
	out, err := execute(t, "config", "validate", "--project", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestConfigValidateRejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := `
runtime:
  exec_template: "bash -c"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "envkit.yaml"), []byte(cfgYAML), 0o644))

	out, err := execute(t, "config", "validate", "--project", dir)
	require.Error(t, err)
	assert.Contains(t, out, "{command}")
}

// writeProject lays down a config and catalog whose global probes run real
// commands: "true" exits 0, "false" exits 1.
func writeProject(t *testing.T, dir string) {
	t.Helper()
	catalogJSON := `{
  "version": 1,
  "prerequisites": [
    {
      "id": "present",
      "name": "Present Tool",
      "check": {"command": "true"}
    },
    {
      "id": "absent",
      "name": "Absent Tool",
      "check": {"command": "false"},
      "steps": [{"name": "noop", "commands": ["true"]}]
    }
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "envkit.catalog.json"), []byte(catalogJSON), 0o644))
}

func TestCheckJSONReportsExitCodeTruth(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	out, err := execute(t, "check", "--project", dir, "--json")
	require.NoError(t, err)

	var reports []reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, "present", reports[0].ID)
	assert.Equal(t, "satisfied", reports[0].State)
	require.Len(t, reports[0].Variants, 1)
	assert.True(t, reports[0].Variants[0].Installed)

	assert.Equal(t, "absent", reports[1].ID)
	assert.Equal(t, "fully_missing", reports[1].State)
	require.Len(t, reports[1].Variants, 1)
	assert.False(t, reports[1].Variants[0].Installed)
}

func TestCheckSingleUnknownPrerequisite(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	_, err := execute(t, "check", "nope", "--project", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown prerequisite")
}

func TestCheckTableSummarizesMissing(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	out, err := execute(t, "check", "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Present Tool")
	assert.Contains(t, out, "1 prerequisite missing")
}

func TestInstallPlainRunsMissingOnly(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	out, err := execute(t, "install", "--project", dir, "--no-tui")
	require.NoError(t, err)
	assert.Contains(t, out, "Present Tool: satisfied")
	assert.Contains(t, out, "Absent Tool: installed")
	// The plain sink saw the install's terminal event.
	assert.Contains(t, out, "absent@0")
}

func TestInstallJSON(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	out, err := execute(t, "install", "--project", dir, "--json")
	require.NoError(t, err)

	var reports []reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "satisfied", reports[0].State)
	assert.Equal(t, "installed", reports[1].State)
}
