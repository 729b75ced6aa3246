package syntax

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/source"
)

// Builder accumulates nodes for one tree. Once Finish is called the tree is
// frozen; the builder must not be reused.
type Builder struct {
	file     source.FileID
	nodes    []Node
	finished bool
}

// NewBuilder creates a builder for the given file with a capacity hint.
func NewBuilder(file source.FileID, hint uint) *Builder {
	if hint == 0 {
		hint = 1 << 6
	}
	return &Builder{
		file:  file,
		nodes: make([]Node, 1, hint+1), // index 0 reserved for NoNodeID
	}
}

// New allocates a node and returns its ID.
func (b *Builder) New(kind NodeKind, span source.Span, text source.StringID) NodeID {
	if b.finished {
		panic("syntax: builder used after Finish")
	}
	next, err := safecast.Conv[uint32](len(b.nodes))
	if err != nil {
		panic(fmt.Errorf("node arena overflow: %w", err))
	}
	id := NodeID(next)
	b.nodes = append(b.nodes, Node{
		Kind: kind,
		Span: span,
		Text: text,
	})
	return id
}

// Attach appends child to parent's child list and records the back-reference.
func (b *Builder) Attach(parent, child NodeID) {
	if b.finished {
		panic("syntax: builder used after Finish")
	}
	if !parent.IsValid() || !child.IsValid() {
		return
	}
	b.nodes[child].Parent = parent
	b.nodes[parent].Children = append(b.nodes[parent].Children, child)
}

// Span returns the current span of an allocated node.
func (b *Builder) Span(id NodeID) source.Span {
	if !id.IsValid() || int(id) >= len(b.nodes) {
		return source.Span{}
	}
	return b.nodes[id].Span
}

// SetSpan widens or sets the span of an already allocated node.
func (b *Builder) SetSpan(id NodeID, span source.Span) {
	if b.finished {
		panic("syntax: builder used after Finish")
	}
	if id.IsValid() {
		b.nodes[id].Span = span
	}
}

// Finish freezes the arena into an immutable Tree rooted at root.
func (b *Builder) Finish(root NodeID) *Tree {
	if b.finished {
		panic("syntax: Finish called twice")
	}
	b.finished = true
	return &Tree{
		File:  b.file,
		Root:  root,
		nodes: b.nodes,
	}
}
