package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"prism/internal/diag"
	"prism/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan, color.Bold)
	pathColor = color.New(color.Bold)
	noteColor = color.New(color.FgBlue)
)

// Pretty renders the bag for terminals. For each diagnostic it prints
//
//	<path>:<line>:<col>: <severity> <CODE>: <message>
//
// followed by the offending source line with a caret underline, then any
// notes in the same shape. The bag is expected to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		printHeader(w, fs, d, opts)
		printContext(w, fs, d.Primary)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				printNote(w, fs, note, opts)
			}
		}
	}
}

func printHeader(w io.Writer, fs *source.FileSet, d diag.Diagnostic, opts PrettyOpts) {
	sev := d.Severity.String()
	if opts.Color {
		sev = severityColor(d.Severity).Sprint(sev)
	}

	// Records without a backing file, e.g. pass timings, render headerless.
	if _, ok := fs.Lookup(d.Primary.File); !ok {
		fmt.Fprintf(w, "%s %s: %s", sev, d.Code.ID(), d.Message)
	} else {
		start, _ := fs.Resolve(d.Primary)
		loc := fmt.Sprintf("%s:%d:%d:", formatPath(fs, d.Primary.File, opts.PathMode), start.Line, start.Col)
		if opts.Color {
			loc = pathColor.Sprint(loc)
		}
		fmt.Fprintf(w, "%s %s %s: %s", loc, sev, d.Code.ID(), d.Message)
	}
	if opts.ShowFixes && d.FixID != "" {
		fmt.Fprintf(w, " [fix: %s]", d.FixID)
	}
	fmt.Fprintln(w)
}

// printContext prints the first line the span touches with a caret
// underline. Width is measured in display cells so wide runes in the prefix
// do not skew the caret.
func printContext(w io.Writer, fs *source.FileSet, span source.Span) {
	f, ok := fs.Lookup(span.File)
	if !ok || span.End < span.Start {
		return
	}
	start, end := fs.Resolve(span)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}

	col := int(start.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	pad := runewidth.StringWidth(line[:col])

	length := 1
	if end.Line == start.Line && end.Col > start.Col {
		hi := int(end.Col) - 1
		if hi > len(line) {
			hi = len(line)
		}
		length = runewidth.StringWidth(line[col:hi])
		if length < 1 {
			length = 1
		}
	}

	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintf(w, "  %s^%s\n", strings.Repeat(" ", pad), strings.Repeat("~", length-1))
}

func printNote(w io.Writer, fs *source.FileSet, note diag.Note, opts PrettyOpts) {
	label := "note:"
	if opts.Color {
		label = noteColor.Sprint(label)
	}
	if _, ok := fs.Lookup(note.Span.File); !ok {
		fmt.Fprintf(w, "  %s %s\n", label, note.Msg)
		return
	}
	start, _ := fs.Resolve(note.Span)
	fmt.Fprintf(w, "  %s:%d:%d: %s %s\n",
		formatPath(fs, note.Span.File, opts.PathMode), start.Line, start.Col, label, note.Msg)
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f, ok := fs.Lookup(id)
	if !ok {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", fs.BaseDir())
	}
}
