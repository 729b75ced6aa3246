package diagfmt

import (
	"strings"
	"testing"

	"prism/internal/diag"
	"prism/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.psm", []byte("hello world\nsecond line\n"))

	bag := diag.NewBag(10)
	rep := diag.BagReporter{Bag: bag}
	diag.ReportWarning(rep, diag.RuleCountCompare,
		source.Span{File: id, Start: 6, End: 11}, "world is flagged").
		WithFixID("use-any").
		WithNote(source.Span{File: id, Start: 0, End: 5}, "hello is related").
		Emit()
	bag.Sort()
	return bag, fs, id
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	bag, fs, _ := sampleBag(t)

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{ShowFixes: true})
	out := sb.String()

	if !strings.Contains(out, "a.psm:1:7: WARNING RULE1001: world is flagged [fix: use-any]") {
		t.Fatalf("header missing:\n%s", out)
	}
	if !strings.Contains(out, "  hello world\n") {
		t.Fatalf("context line missing:\n%s", out)
	}
	if !strings.Contains(out, "  "+strings.Repeat(" ", 6)+"^~~~~\n") {
		t.Fatalf("caret underline missing:\n%s", out)
	}
	if strings.Contains(out, "note:") {
		t.Fatalf("notes shown without ShowNotes:\n%s", out)
	}
}

func TestPrettyRendersSpanlessRecords(t *testing.T) {
	// Timing records carry a zero span; an empty set holds no file for it,
	// so the header renders without a location.
	fs := source.NewFileSet()
	bag := diag.NewBag(4)
	rep := diag.BagReporter{Bag: bag}
	diag.ReportInfo(rep, diag.ObsTimings, source.Span{}, "pass timings").
		WithNote(source.Span{}, "load 1.2ms").
		Emit()
	bag.Sort()

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{ShowNotes: true})
	out := sb.String()

	if !strings.Contains(out, "INFO OBS9001: pass timings") {
		t.Fatalf("record missing:\n%s", out)
	}
	if strings.Contains(out, ":0:0") || strings.Contains(out, "<unknown>") {
		t.Fatalf("spanless record rendered with a location:\n%s", out)
	}
	if !strings.Contains(out, "  note: load 1.2ms") {
		t.Fatalf("spanless note missing:\n%s", out)
	}
}

func TestPrettyShowsNotes(t *testing.T) {
	bag, fs, _ := sampleBag(t)

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{ShowNotes: true})
	out := sb.String()

	if !strings.Contains(out, "a.psm:1:1: note: hello is related") {
		t.Fatalf("note missing:\n%s", out)
	}
}
