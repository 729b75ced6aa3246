// Package provider is the tree/symbol supplier for the pipeline: it reads
// .psm declaration units, builds immutable syntax trees and a bound symbol
// table, and bundles them into a compilation snapshot. It stands in for the
// external compiler front end the engines are designed against: the engines
// only ever see the snapshot contract, never this package's reader.
package provider

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/syntax"
)

// UnitSuffix is the file extension of declaration units.
const UnitSuffix = ".psm"

// DefaultMaxDiagnostics bounds a single pass's diagnostic output.
const DefaultMaxDiagnostics = 100

// Provider builds snapshots from .psm units.
type Provider struct {
	MaxDiagnostics int
}

func New() *Provider {
	return &Provider{MaxDiagnostics: DefaultMaxDiagnostics}
}

// Build parses and binds every .psm file already loaded into fs. Files that
// fail to parse contribute diagnostics and no tree; the snapshot still
// covers the remaining files.
func (p *Provider) Build(fileSet *source.FileSet) (*compile.Snapshot, *diag.Bag, error) {
	maxDiags := p.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	bag := diag.NewBag(maxDiags)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	interner := source.NewInterner()
	trees := make(map[source.FileID]*syntax.Tree, fileSet.Len())
	order := make([]source.FileID, 0, fileSet.Len())

	for _, id := range fileSet.IDs() {
		f := fileSet.Get(id)
		if !strings.HasSuffix(f.Path, UnitSuffix) {
			continue
		}
		if tree := Parse(f, interner, rep); tree != nil {
			trees[id] = tree
			order = append(order, id)
		}
	}

	table := bind(trees, interner, order)
	return compile.New(fileSet, trees, table), bag, nil
}

func (p *Provider) LoadDir(dir string) (*compile.Snapshot, *diag.Bag, error) {
	files, err := ListUnits(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	for _, path := range files {
		if _, err := fileSet.Load(path); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return p.Build(fileSet)
}

// FromContents builds a snapshot from in-memory units, keyed by path. Paths
// are sorted so FileIDs, and with them diagnostic ordering, stay
// deterministic across runs.
func (p *Provider) FromContents(contents map[string][]byte) (*compile.Snapshot, *diag.Bag, error) {
	paths := make([]string, 0, len(contents))
	for path := range contents {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fileSet := source.NewFileSet()
	for _, path := range paths {
		fileSet.AddVirtual(path, contents[path])
	}
	return p.Build(fileSet)
}

// Rebuild adapts the provider into the fix engine's rebuild contract: a
// successor snapshot is only produced when the edited sources still parse.
func (p *Provider) Rebuild() compile.RebuildFunc {
	return func(contents map[string][]byte) (*compile.Snapshot, error) {
		snap, bag, err := p.FromContents(contents)
		if err != nil {
			return nil, err
		}
		if bag.HasErrors() {
			return nil, fmt.Errorf("provider: edited sources no longer parse (%d diagnostics)", bag.Len())
		}
		return snap, nil
	}
}

// ListUnits returns the sorted list of .psm files under dir.
func ListUnits(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, UnitSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
