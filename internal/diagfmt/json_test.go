package diagfmt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	bag, fs, _ := sampleBag(t)

	var sb strings.Builder
	if err := JSON(&sb, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out Output
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d, want 1/1", out.Count, len(out.Diagnostics))
	}

	d := out.Diagnostics[0]
	if d.Code != "RULE1001" || d.Severity != "WARNING" || d.FixID != "use-any" {
		t.Fatalf("record = %+v", d)
	}
	if d.Location.StartByte != 6 || d.Location.EndByte != 11 {
		t.Fatalf("bytes = %d..%d, want 6..11", d.Location.StartByte, d.Location.EndByte)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 7 {
		t.Fatalf("position = %d:%d, want 1:7", d.Location.StartLine, d.Location.StartCol)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "hello is related" {
		t.Fatalf("notes = %v", d.Notes)
	}
}

func TestJSONMaxTruncates(t *testing.T) {
	bag, fs, _ := sampleBag(t)

	var sb strings.Builder
	if err := JSON(&sb, bag, fs, JSONOpts{Max: 0}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out Output
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count = %d, want 1", out.Count)
	}
}
