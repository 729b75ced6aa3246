// Package compile defines the compilation snapshot: one immutable bundle of
// files, syntax trees and resolved symbols that every engine pass reads.
// Engines never mutate a snapshot; an applied edit or a regenerated unit
// produces a successor snapshot and the old one is dropped together with all
// state keyed to it (symbol reference index, generation bookkeeping).
package compile

import (
	"fmt"

	"prism/internal/project"
	"prism/internal/source"
	"prism/internal/symbols"
	"prism/internal/syntax"
)

// Snapshot is the input to one analysis / fix / generation pass.
type Snapshot struct {
	FS    *source.FileSet
	Table *symbols.Table

	trees map[source.FileID]*syntax.Tree
	stamp project.Digest
}

// New assembles a snapshot and computes its identity stamp from the file
// hashes in file order.
func New(fs *source.FileSet, trees map[source.FileID]*syntax.Tree, table *symbols.Table) *Snapshot {
	digests := make([]project.Digest, 0, fs.Len())
	for _, id := range fs.IDs() {
		f := fs.Get(id)
		digests = append(digests, project.Combine(project.DigestStrings(f.Path), project.Digest(f.Hash)))
	}
	return &Snapshot{
		FS:    fs,
		Table: table,
		trees: trees,
		stamp: project.Combine(digests...),
	}
}

// Stamp identifies this snapshot; two snapshots with identical file contents
// share a stamp.
func (s *Snapshot) Stamp() project.Digest { return s.stamp }

// Tree returns the syntax tree for a file, or nil when the file has none
// (e.g. a retracted or non-source file).
func (s *Snapshot) Tree(file source.FileID) *syntax.Tree {
	return s.trees[file]
}

// Trees returns the file IDs that carry trees, in file order.
func (s *Snapshot) Trees() []source.FileID {
	out := make([]source.FileID, 0, len(s.trees))
	for _, id := range s.FS.IDs() {
		if s.trees[id] != nil {
			out = append(out, id)
		}
	}
	return out
}

// NodeText returns the source text of a node.
func (s *Snapshot) NodeText(file source.FileID, node syntax.NodeID) string {
	t := s.trees[file]
	if t == nil {
		return ""
	}
	return string(s.FS.Text(t.Get(node).Span))
}

// Contents returns path -> content for every file, the input shape a
// RebuildFunc consumes.
func (s *Snapshot) Contents() map[string][]byte {
	out := make(map[string][]byte, s.FS.Len())
	for _, id := range s.FS.IDs() {
		f := s.FS.Get(id)
		out[f.Path] = f.Content
	}
	return out
}

// RebuildFunc produces a successor snapshot from replacement file contents
// keyed by path. The provider that built the original snapshot supplies it;
// fix application calls it after validating an edit.
type RebuildFunc func(contents map[string][]byte) (*Snapshot, error)

// Resolve maps a node to its symbol through the snapshot's table.
func (s *Snapshot) Resolve(file source.FileID, node syntax.NodeID) (symbols.SymbolID, bool) {
	if s.Table == nil {
		return symbols.NoSymbolID, false
	}
	return s.Table.Resolve(symbols.NodeRef{File: file, Node: node})
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot(%d files, %s)", s.FS.Len(), s.stamp.Short())
}
