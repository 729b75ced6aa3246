package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"prism/internal/diag"
)

// ManifestName is the file the loader walks up the directory tree for.
const ManifestName = "prism.toml"

// Manifest is a loaded project manifest plus its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the prism.toml layout.
type Config struct {
	Project  ProjectConfig  `toml:"project"`
	Rules    RulesConfig    `toml:"rules"`
	Generate GenerateConfig `toml:"generate"`
	Run      RunConfig      `toml:"run"`
}

type ProjectConfig struct {
	Name string `toml:"name"`
	// Source is the unit directory relative to the manifest, "." when empty.
	Source string `toml:"source"`
}

type RulesConfig struct {
	// Disabled lists rule codes to skip, e.g. "RULE1003".
	Disabled []string `toml:"disabled"`
	// Severity overrides per rule code: "error", "warning" or "info".
	Severity map[string]string `toml:"severity"`
}

type GenerateConfig struct {
	// Output is where generated units are written, relative to the root.
	Output string `toml:"output"`
	// Cache toggles the on-disk unit cache.
	Cache bool `toml:"cache"`
}

type RunConfig struct {
	Jobs           int `toml:"jobs"`
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// FindManifest walks from startDir to the filesystem root looking for
// prism.toml. The second result is false on a clean miss.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and parses the nearest manifest above startDir.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return Config{}, fmt.Errorf("%s: missing [project]", path)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [project].name", path)
	}
	return cfg, nil
}

// SourceDir resolves the configured unit directory against the root.
func (m *Manifest) SourceDir() string {
	src := strings.TrimSpace(m.Config.Project.Source)
	if src == "" || src == "." {
		return m.Root
	}
	return filepath.Join(m.Root, filepath.FromSlash(src))
}

// OutputDir resolves the generation output directory against the root.
func (m *Manifest) OutputDir() string {
	out := strings.TrimSpace(m.Config.Generate.Output)
	if out == "" {
		out = "gen"
	}
	return filepath.Join(m.Root, filepath.FromSlash(out))
}

// DisabledCodes translates the disabled list into diagnostic codes. Unknown
// spellings are reported, not silently dropped.
func (m *Manifest) DisabledCodes() (map[diag.Code]bool, error) {
	if len(m.Config.Rules.Disabled) == 0 {
		return nil, nil
	}
	out := make(map[diag.Code]bool, len(m.Config.Rules.Disabled))
	for _, s := range m.Config.Rules.Disabled {
		code, err := parseCode(s)
		if err != nil {
			return nil, fmt.Errorf("%s: [rules].disabled: %w", m.Path, err)
		}
		out[code] = true
	}
	return out, nil
}

// SeverityOverrides translates the severity table into engine overrides.
func (m *Manifest) SeverityOverrides() (map[diag.Code]diag.Severity, error) {
	if len(m.Config.Rules.Severity) == 0 {
		return nil, nil
	}
	out := make(map[diag.Code]diag.Severity, len(m.Config.Rules.Severity))
	for key, val := range m.Config.Rules.Severity {
		code, err := parseCode(key)
		if err != nil {
			return nil, fmt.Errorf("%s: [rules.severity]: %w", m.Path, err)
		}
		sev, err := parseSeverity(val)
		if err != nil {
			return nil, fmt.Errorf("%s: [rules.severity] %s: %w", m.Path, key, err)
		}
		out[code] = sev
	}
	return out, nil
}

// parseCode accepts either the prefixed form ("RULE1001") or a bare number.
func parseCode(s string) (diag.Code, error) {
	trimmed := strings.TrimSpace(s)
	digits := strings.TrimLeftFunc(trimmed, func(r rune) bool {
		return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
	})
	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return diag.UnknownCode, fmt.Errorf("invalid rule code %q", s)
	}
	return diag.Code(n), nil
}

func parseSeverity(s string) (diag.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return diag.SevError, nil
	case "warning", "warn":
		return diag.SevWarning, nil
	case "info":
		return diag.SevInfo, nil
	default:
		return 0, fmt.Errorf("invalid severity %q", s)
	}
}
