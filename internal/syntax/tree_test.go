package syntax

import (
	"testing"

	"prism/internal/source"
)

// buildSample constructs:
//
//	file
//	└── func "main"
//	    └── block
//	        └── cmp "gt"
//	            ├── call ── ident "count"
//	            └── int "0"
func buildSample(t *testing.T) (*Tree, map[string]NodeID) {
	t.Helper()

	in := source.NewInterner()
	b := NewBuilder(0, 0)
	sp := func(start, end uint32) source.Span {
		return source.Span{File: 0, Start: start, End: end}
	}

	file := b.New(KindFile, sp(0, 40), source.NoStringID)
	fn := b.New(KindFuncDecl, sp(0, 40), in.Intern("main"))
	block := b.New(KindBlock, sp(10, 38), source.NoStringID)
	cmp := b.New(KindCompare, sp(12, 30), in.Intern("gt"))
	call := b.New(KindCall, sp(12, 26), source.NoStringID)
	callee := b.New(KindIdent, sp(12, 17), in.Intern("count"))
	zero := b.New(KindIntLit, sp(28, 29), in.Intern("0"))

	b.Attach(file, fn)
	b.Attach(fn, block)
	b.Attach(block, cmp)
	b.Attach(cmp, call)
	b.Attach(call, callee)
	b.Attach(cmp, zero)

	tree := b.Finish(file)
	return tree, map[string]NodeID{
		"file": file, "fn": fn, "block": block,
		"cmp": cmp, "call": call, "callee": callee, "zero": zero,
	}
}

func TestWalkPreOrder(t *testing.T) {
	tree, ids := buildSample(t)

	var visited []NodeID
	done := tree.Walk(tree.Root, func(id NodeID) bool {
		visited = append(visited, id)
		return true
	})
	if !done {
		t.Fatalf("walk stopped early")
	}

	want := []NodeID{ids["file"], ids["fn"], ids["block"], ids["cmp"], ids["call"], ids["callee"], ids["zero"]}
	if len(visited) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(visited), len(want))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visit order[%d] = %d, want %d", i, visited[i], want[i])
		}
	}
}

func TestCoveringNode(t *testing.T) {
	tree, ids := buildSample(t)

	probe := source.Span{File: 0, Start: 13, End: 15}
	if got := tree.CoveringNode(probe); got != ids["callee"] {
		t.Fatalf("CoveringNode = %d, want callee %d", got, ids["callee"])
	}

	wide := source.Span{File: 0, Start: 12, End: 30}
	if got := tree.CoveringNode(wide); got != ids["cmp"] {
		t.Fatalf("CoveringNode(wide) = %d, want cmp %d", got, ids["cmp"])
	}
}

func TestEnclosingDecl(t *testing.T) {
	tree, ids := buildSample(t)

	if got := tree.EnclosingDecl(ids["zero"]); got != ids["fn"] {
		t.Fatalf("EnclosingDecl = %d, want fn %d", got, ids["fn"])
	}
	if got := tree.EnclosingDecl(ids["file"]); got != NoNodeID {
		t.Fatalf("EnclosingDecl(file) = %d, want NoNodeID", got)
	}
}

func TestBuilderPanicsAfterFinish(t *testing.T) {
	b := NewBuilder(0, 0)
	root := b.New(KindFile, source.Span{}, source.NoStringID)
	b.Finish(root)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on New after Finish")
		}
	}()
	b.New(KindBlock, source.Span{}, source.NoStringID)
}
