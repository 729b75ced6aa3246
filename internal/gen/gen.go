// Package gen is the incremental generation half of the pipeline. A closed
// set of generators runs over marker-carrying declarations; each output unit
// is keyed by a digest of the declaration's shape, the marker configuration
// and the generator version, so an unchanged declaration is never
// regenerated and a changed one is always regenerated. Generated units are
// plain source text and byte-identical across runs for identical inputs.
package gen

import (
	"sort"
	"strings"

	"prism/internal/compile"
	"prism/internal/project"
	"prism/internal/source"
	"prism/internal/syntax"
)

// Config is a marker's key=value arguments.
type Config map[string]string

// Get returns the value for key, or def when the marker does not set it.
func (c Config) Get(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// pairs returns "key=value" strings in sorted key order, the shape that
// feeds the state digest.
func (c Config) pairs() []string {
	out := make([]string, 0, len(c))
	for k, v := range c {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Input is everything one generator invocation may read.
type Input struct {
	Snap   *compile.Snapshot
	File   source.FileID
	Decl   syntax.NodeID
	Marker syntax.NodeID
	Name   string
	Config Config
}

// DeclText returns the full source text of the marked declaration.
func (in *Input) DeclText() string {
	return in.Snap.NodeText(in.File, in.Decl)
}

// Unit is one generated output file. Owner is the marked declaration the
// unit was generated for; Hash is the input digest the engine keyed the
// unit by, so hosts can correlate outputs across scans.
type Unit struct {
	Owner   string
	Path    string
	Content []byte
	Hash    project.Digest
}

// Generator is one code producer. Name doubles as the marker spelling that
// triggers it; Version participates in the state digest so bumping it
// invalidates every cached output of the generator.
type Generator interface {
	Name() string
	Version() uint16
	Generate(in *Input) (Unit, error)
}

// Registry is the closed generator set, keyed by marker name.
type Registry struct {
	byName map[string]Generator
	names  []string
}

func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{byName: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		if _, dup := r.byName[g.Name()]; dup {
			continue
		}
		r.byName[g.Name()] = g
		r.names = append(r.names, g.Name())
	}
	sort.Strings(r.names)
	return r
}

// DefaultRegistry assembles the built-in generators.
func DefaultRegistry() *Registry {
	return NewRegistry(&Convert{}, &Trace{})
}

// Lookup returns the generator a marker names, if any.
func (r *Registry) Lookup(marker string) (Generator, bool) {
	g, ok := r.byName[marker]
	return g, ok
}

// configOf decodes a marker node's key=value arguments.
func configOf(snap *compile.Snapshot, tree *syntax.Tree, marker syntax.NodeID) Config {
	args := tree.ChildrenOfKind(marker, syntax.KindMarkerArg)
	if len(args) == 0 {
		return nil
	}
	cfg := make(Config, len(args))
	for _, arg := range args {
		text := snap.Table.Interner.MustLookup(tree.Get(arg).Text)
		if k, v, ok := strings.Cut(text, "="); ok {
			cfg[k] = v
		}
	}
	return cfg
}
