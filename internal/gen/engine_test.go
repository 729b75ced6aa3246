package gen

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/project"
	"prism/internal/provider"
)

func buildSnap(t *testing.T, contents map[string][]byte) *compile.Snapshot {
	t.Helper()
	snap, bag, err := provider.New().FromContents(contents)
	if err != nil {
		t.Fatalf("FromContents: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("fixture does not parse: %v", bag.Items())
	}
	return snap
}

func markedFixture() map[string][]byte {
	return map[string][]byte{
		"point.psm": []byte(`
(type Point
  (marker convert (target map))
  (field x int)
  (field y int))
`),
		"api.psm": []byte(`
(func fetch
  (marker trace)
  (returns task))
`),
	}
}

func TestScanComputesThenReuses(t *testing.T) {
	snap := buildSnap(t, markedFixture())
	eng := NewEngine(DefaultRegistry(), Options{})

	first, err := eng.Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if first.Recomputed != 2 || first.Reused != 0 {
		t.Fatalf("first scan: recomputed=%d reused=%d, want 2/0", first.Recomputed, first.Reused)
	}
	if len(first.Units) != 2 {
		t.Fatalf("want 2 units, got %d", len(first.Units))
	}

	second, err := eng.Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if second.Recomputed != 0 || second.Reused != 2 {
		t.Fatalf("second scan: recomputed=%d reused=%d, want 0/2", second.Recomputed, second.Reused)
	}
	for i, unit := range second.Units {
		if unit.Path != first.Units[i].Path || !bytes.Equal(unit.Content, first.Units[i].Content) {
			t.Fatalf("unit %d not byte-identical across scans", i)
		}
		if unit.Owner != first.Units[i].Owner || unit.Hash != first.Units[i].Hash {
			t.Fatalf("unit %d identity changed across scans: %s/%v vs %s/%v",
				i, unit.Owner, unit.Hash, first.Units[i].Owner, first.Units[i].Hash)
		}
	}
}

func TestUnitsCarryOwnerAndHash(t *testing.T) {
	snap := buildSnap(t, markedFixture())
	res, err := NewEngine(DefaultRegistry(), Options{}).Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	owners := make(map[string]string, len(res.Units))
	for _, u := range res.Units {
		owners[u.Path] = u.Owner
		if u.Hash == (project.Digest{}) {
			t.Errorf("unit %s has a zero input digest", u.Path)
		}
	}
	if owners["gen/point_convert.psm"] != "Point" {
		t.Errorf("convert unit owner = %q, want Point", owners["gen/point_convert.psm"])
	}
	if owners["gen/fetch_trace.psm"] != "fetch" {
		t.Errorf("trace unit owner = %q, want fetch", owners["gen/fetch_trace.psm"])
	}
}

func TestScanUnitContent(t *testing.T) {
	snap := buildSnap(t, markedFixture())
	res, err := NewEngine(DefaultRegistry(), Options{}).Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byPath := make(map[string]string, len(res.Units))
	for _, u := range res.Units {
		byPath[u.Path] = string(u.Content)
	}

	convert, ok := byPath["gen/point_convert.psm"]
	if !ok {
		t.Fatalf("no convert unit in %v", res.Units)
	}
	for _, want := range []string{"(func packPoint", "(param value Point)", "(returns map)", "(ref x)", "(ref y)"} {
		if !strings.Contains(convert, want) {
			t.Errorf("convert unit missing %q:\n%s", want, convert)
		}
	}

	trace, ok := byPath["gen/fetch_trace.psm"]
	if !ok {
		t.Fatalf("no trace unit in %v", res.Units)
	}
	for _, want := range []string{"(func fetchTraced", "(returns task)", "(call (ref fetch))"} {
		if !strings.Contains(trace, want) {
			t.Errorf("trace unit missing %q:\n%s", want, trace)
		}
	}

	// Generated units must themselves parse.
	contents := make(map[string][]byte, len(res.Units))
	for _, u := range res.Units {
		contents[u.Path] = u.Content
	}
	buildSnap(t, contents)
}

func TestStaleDeclarationRecomputed(t *testing.T) {
	eng := NewEngine(DefaultRegistry(), Options{})
	if _, err := eng.Scan(context.Background(), buildSnap(t, markedFixture())); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	edited := markedFixture()
	edited["point.psm"] = []byte(`
(type Point
  (marker convert (target map))
  (field x int)
  (field y int)
  (field z int))
`)
	res, err := eng.Scan(context.Background(), buildSnap(t, edited))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Recomputed != 1 || res.Reused != 1 {
		t.Fatalf("recomputed=%d reused=%d, want 1/1", res.Recomputed, res.Reused)
	}
	var convert string
	for _, u := range res.Units {
		if u.Path == "gen/point_convert.psm" {
			convert = string(u.Content)
		}
	}
	if !strings.Contains(convert, "(ref z)") {
		t.Fatalf("recomputed unit misses the new field:\n%s", convert)
	}
}

func TestRemovedDeclarationRetracted(t *testing.T) {
	eng := NewEngine(DefaultRegistry(), Options{})
	if _, err := eng.Scan(context.Background(), buildSnap(t, markedFixture())); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	shrunk := markedFixture()
	delete(shrunk, "api.psm")
	res, err := eng.Scan(context.Background(), buildSnap(t, shrunk))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Retracted) != 1 || res.Retracted[0] != "gen/fetch_trace.psm" {
		t.Fatalf("retracted = %v, want the trace unit", res.Retracted)
	}
	if len(res.Units) != 1 {
		t.Fatalf("want 1 live unit, got %d", len(res.Units))
	}
}

func TestPreconditionViolationReported(t *testing.T) {
	snap := buildSnap(t, map[string][]byte{
		"empty.psm": []byte(`
(type Empty
  (marker convert))
`),
	})
	res, err := NewEngine(DefaultRegistry(), Options{}).Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Units) != 0 {
		t.Fatalf("violating marker must yield no unit, got %v", res.Units)
	}
	var found bool
	for _, d := range res.Diags.Items() {
		if d.Code == diag.GenPrecondition {
			found = true
		}
	}
	if !found {
		t.Fatalf("no precondition record in %v", res.Diags.Items())
	}
}

func TestDiskCacheServesFreshEngine(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	snap := buildSnap(t, markedFixture())

	warm := NewEngine(DefaultRegistry(), Options{Cache: cache})
	res, err := warm.Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Recomputed != 2 {
		t.Fatalf("warm-up recomputed=%d, want 2", res.Recomputed)
	}

	cold := NewEngine(DefaultRegistry(), Options{Cache: cache})
	res, err = cold.Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Recomputed != 0 || res.Reused != 2 {
		t.Fatalf("cold engine recomputed=%d reused=%d, want 0/2", res.Recomputed, res.Reused)
	}
}

func TestScanCancelled(t *testing.T) {
	snap := buildSnap(t, markedFixture())
	eng := NewEngine(DefaultRegistry(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Scan(ctx, snap); err == nil {
		t.Fatal("want cancellation error")
	}

	// Nothing committed: the next scan starts from scratch.
	res, err := eng.Scan(context.Background(), snap)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Recomputed != 2 {
		t.Fatalf("recomputed=%d after aborted scan, want 2", res.Recomputed)
	}
}
