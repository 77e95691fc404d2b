package steps

import (
	"testing"

	"envkit/internal/catalog"
)

func TestResolveFixedCommandsWinOverTemplate(t *testing.T) {
	step := catalog.InstallStep{
		Commands:        []string{"brew install fnm", "fnm --version"},
		CommandTemplate: "should-not-be-used {version}",
	}

	got := Resolve(step, Context{RuntimeVersion: "20"})
	if len(got) != 2 || got[0] != "brew install fnm" || got[1] != "fnm --version" {
		t.Fatalf("unexpected commands %v", got)
	}
}

func TestResolveFixedCommandsCopied(t *testing.T) {
	step := catalog.InstallStep{Commands: []string{"a", "b"}}
	got := Resolve(step, Context{})
	got[0] = "mutated"
	if step.Commands[0] != "a" {
		t.Fatal("Resolve must not alias the step's command slice")
	}
}

func TestResolveTemplateSubstitutesVersion(t *testing.T) {
	step := catalog.InstallStep{CommandTemplate: "fnm install {version}"}

	got := Resolve(step, Context{RuntimeVersion: "20"})
	if len(got) != 1 || got[0] != "fnm install 20" {
		t.Fatalf("unexpected commands %v", got)
	}
}

func TestResolveUnresolvedTemplateIsEmptyNotError(t *testing.T) {
	step := catalog.InstallStep{CommandTemplate: "fnm install {version}"}

	got := Resolve(step, Context{})
	if len(got) != 0 {
		t.Fatalf("expected empty list for unresolved placeholder, got %v", got)
	}
}

func TestResolvePreSpecializedTemplatePassesThrough(t *testing.T) {
	// A template without the placeholder was specialized upstream; it must
	// not be dropped just because no runtime version is supplied.
	step := catalog.InstallStep{CommandTemplate: "fnm install 18"}

	got := Resolve(step, Context{})
	if len(got) != 1 || got[0] != "fnm install 18" {
		t.Fatalf("unexpected commands %v", got)
	}
}

func TestResolveEmptyStep(t *testing.T) {
	got := Resolve(catalog.InstallStep{}, Context{RuntimeVersion: "20"})
	if len(got) != 0 {
		t.Fatalf("expected no commands, got %v", got)
	}
}
