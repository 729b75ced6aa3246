package project

import (
	"os"
	"path/filepath"
	"testing"

	"prism/internal/diag"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
source = "units"

[rules]
disabled = ["RULE1003"]

[rules.severity]
RULE1001 = "error"

[generate]
output = "out"
cache = true

[run]
jobs = 4
max_diagnostics = 50
`)

	m, ok, err := LoadManifest(dir)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	if m.Config.Project.Name != "demo" {
		t.Errorf("name = %q", m.Config.Project.Name)
	}
	if got := m.SourceDir(); got != filepath.Join(dir, "units") {
		t.Errorf("SourceDir = %q", got)
	}
	if got := m.OutputDir(); got != filepath.Join(dir, "out") {
		t.Errorf("OutputDir = %q", got)
	}
	if m.Config.Run.Jobs != 4 || m.Config.Run.MaxDiagnostics != 50 {
		t.Errorf("run config = %+v", m.Config.Run)
	}

	disabled, err := m.DisabledCodes()
	if err != nil {
		t.Fatalf("DisabledCodes: %v", err)
	}
	if !disabled[diag.RuleMatchBool] {
		t.Errorf("disabled = %v, want RuleMatchBool", disabled)
	}

	sev, err := m.SeverityOverrides()
	if err != nil {
		t.Fatalf("SeverityOverrides: %v", err)
	}
	if sev[diag.RuleCountCompare] != diag.SevError {
		t.Errorf("severity = %v", sev)
	}
}

func TestLoadManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"demo\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, ok, err := LoadManifest(nested)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Errorf("root = %q, want %q", m.Root, root)
	}
}

func TestLoadManifestMissingName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project]\n")
	if _, _, err := LoadManifest(dir); err == nil {
		t.Fatal("want error for missing [project].name")
	}
}

func TestLoadManifestAbsent(t *testing.T) {
	_, ok, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("found a manifest where none exists")
	}
}
