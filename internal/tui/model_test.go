package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel() Model {
	m := NewModel("test", []Column{
		{Header: "PREREQUISITE", Width: 16},
		{Header: "VERSION", Width: 8},
		{Header: "STATUS", Width: 12},
		{Header: "PHASE", Width: 16},
	})
	m.AddRow("project-cli@20", []string{"Project CLI", "20", "pending", "-"})
	m.AddRow("project-cli@24", []string{"Project CLI", "24", "pending", "-"})
	return m
}

func TestRowUpdateByHeader(t *testing.T) {
	m := testModel()

	next, _ := m.Update(RowUpdateMsg{Key: "project-cli@24", Fields: map[string]string{
		"STATUS": "installing",
		"PHASE":  "install-runtime",
	}})
	m = next.(Model)

	assert.Equal(t, "pending", m.rows[0].Fields[2])
	assert.Equal(t, "installing", m.rows[1].Fields[2])
	assert.Equal(t, "install-runtime", m.rows[1].Fields[3])
}

func TestRowUpdateUnknownKeyIgnored(t *testing.T) {
	m := testModel()
	next, _ := m.Update(RowUpdateMsg{Key: "nope@1", Fields: map[string]string{"STATUS": "x"}})
	m = next.(Model)
	assert.Equal(t, "pending", m.rows[0].Fields[2])
}

func TestProgressIsMonotonicPerRow(t *testing.T) {
	m := testModel()

	for _, pct := range []int{10, 55, 40, 90, 12} {
		next, _ := m.Update(ProgressMsg{Key: "project-cli@20", Percent: pct})
		m = next.(Model)
	}

	assert.Equal(t, 90, m.rows[0].Percent)
	assert.Equal(t, 0, m.rows[1].Percent)
}

func TestWorkDoneQuits(t *testing.T) {
	m := testModel()
	next, cmd := m.Update(WorkDoneMsg{})
	m = next.(Model)

	assert.True(t, m.Done())
	require.NotNil(t, cmd)
}

func TestErrorMsgSurfacesError(t *testing.T) {
	m := testModel()
	next, _ := m.Update(ErrorMsg{Err: assert.AnError})
	m = next.(Model)

	assert.True(t, m.Done())
	assert.Equal(t, assert.AnError, m.Err())
}

func TestViewContainsRowsAndHeaders(t *testing.T) {
	m := testModel()
	next, _ := m.Update(ProgressMsg{Key: "project-cli@20", Percent: 50})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "PREREQUISITE")
	assert.Contains(t, view, "PROGRESS")
	assert.Contains(t, view, "Project CLI")
	// Two data rows plus header and footer.
	assert.GreaterOrEqual(t, strings.Count(view, "\n"), 4)
}

func TestTruncateWithEllipsis(t *testing.T) {
	assert.Equal(t, "short", TruncateWithEllipsis("short", 10))
	assert.Equal(t, "exactly-te", TruncateWithEllipsis("exactly-te", 10))
	assert.Equal(t, "install...", TruncateWithEllipsis("install-project-cli", 10))
	assert.Equal(t, "abc", TruncateWithEllipsis("abcdef", 3))
	assert.Equal(t, "", TruncateWithEllipsis("anything", 0))
}

func TestNonEmptyOrDash(t *testing.T) {
	assert.Equal(t, "-", NonEmptyOrDash(""))
	assert.Equal(t, "-", NonEmptyOrDash("   "))
	assert.Equal(t, "1.2.3", NonEmptyOrDash("1.2.3"))
}
