package syntax

import (
	"prism/internal/source"
)

// Node is one element of a tree arena. Nodes reference each other through
// IDs only; nothing in a built tree is ever mutated, so a Tree can be shared
// freely across worker goroutines.
type Node struct {
	Kind     NodeKind
	Span     source.Span
	Parent   NodeID
	Children []NodeID
	// Text is the node's spelling: identifier name, operator, literal text or
	// marker name, depending on Kind.
	Text source.StringID
}

// Tree is an immutable syntax tree for a single source unit.
type Tree struct {
	File  source.FileID
	Root  NodeID
	nodes []Node
}

// Get returns the node for id. The zero Node is returned for invalid IDs.
func (t *Tree) Get(id NodeID) Node {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return Node{}
	}
	return t.nodes[id]
}

// Children returns the child list for id. The slice is owned by the tree and
// must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id].Children
}

// Parent returns the parent of id, or NoNodeID for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.Get(id).Parent
}

// Len reports the number of nodes excluding the sentinel.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Walk visits nodes in depth-first pre-order starting at root. The visitor
// returns false to stop the walk early; Walk reports whether the walk ran to
// completion.
func (t *Tree) Walk(root NodeID, visit func(NodeID) bool) bool {
	if !root.IsValid() {
		return true
	}
	if !visit(root) {
		return false
	}
	for _, child := range t.Children(root) {
		if !t.Walk(child, visit) {
			return false
		}
	}
	return true
}

// CoveringNode returns the smallest node whose span contains the given span,
// or NoNodeID when the span lies outside the tree.
func (t *Tree) CoveringNode(span source.Span) NodeID {
	best := NoNodeID
	t.Walk(t.Root, func(id NodeID) bool {
		n := t.nodes[id]
		if !n.Span.Contains(span) {
			// Siblings may still cover it, but nothing below this node can.
			return true
		}
		best = id
		return true
	})
	return best
}

// EnclosingDecl walks up from id to the nearest declaration node, including
// id itself.
func (t *Tree) EnclosingDecl(id NodeID) NodeID {
	for cur := id; cur.IsValid(); cur = t.Get(cur).Parent {
		if t.Get(cur).Kind.IsDecl() {
			return cur
		}
	}
	return NoNodeID
}

// Decls returns the top-level declaration nodes of the file in source order.
func (t *Tree) Decls() []NodeID {
	var out []NodeID
	for _, child := range t.Children(t.Root) {
		if t.Get(child).Kind.IsDecl() {
			out = append(out, child)
		}
	}
	return out
}

// Markers returns the marker nodes attached to a declaration, in source order.
func (t *Tree) Markers(decl NodeID) []NodeID {
	var out []NodeID
	for _, child := range t.Children(decl) {
		if t.Get(child).Kind == KindMarker {
			out = append(out, child)
		}
	}
	return out
}

// FirstChildOfKind returns the first direct child of the given kind.
func (t *Tree) FirstChildOfKind(id NodeID, kind NodeKind) NodeID {
	for _, child := range t.Children(id) {
		if t.Get(child).Kind == kind {
			return child
		}
	}
	return NoNodeID
}

// ChildrenOfKind returns all direct children of the given kind.
func (t *Tree) ChildrenOfKind(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, child := range t.Children(id) {
		if t.Get(child).Kind == kind {
			out = append(out, child)
		}
	}
	return out
}
