package rules

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/source"
	"prism/internal/syntax"
)

// Options tunes one analysis pass.
type Options struct {
	// Jobs caps worker parallelism; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics bounds the merged bag; 0 uses a generous default.
	MaxDiagnostics int
	// Severity overrides the default severity per rule code, e.g. promoting
	// a warning to an error from the project manifest.
	Severity map[diag.Code]diag.Severity
}

// Runner executes registered rules over a snapshot.
type Runner struct {
	reg  *Registry
	opts Options
}

func NewRunner(reg *Registry, opts Options) *Runner {
	return &Runner{reg: reg, opts: opts}
}

// RunPass visits every node of every tree once and returns the merged,
// deduplicated, location-sorted diagnostics for the pass. The snapshot is
// read-only, so files are analyzed in parallel; per-file bags are merged at
// the end, which keeps the accumulation commutative, and a single sort
// restores deterministic order. A cancelled context aborts the pass and
// yields no diagnostics at all, never a truncated set.
func (r *Runner) RunPass(ctx context.Context, snap *compile.Snapshot) (*diag.Bag, error) {
	files := snap.Trees()
	maxDiags := r.opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = 1 << 10
	}

	jobs := r.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Indexed results: each goroutine owns its slot, no mutex needed.
	bags := make([]*diag.Bag, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(files), 1)))

	for i, fileID := range files {
		i, fileID := i, fileID
		g.Go(func() error {
			bag := diag.NewBag(maxDiags)
			if err := r.runFile(gctx, snap, fileID, bag); err != nil {
				return err
			}
			bags[i] = bag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := diag.NewBag(maxDiags)
	for _, bag := range bags {
		merged.Merge(bag)
	}
	merged.Sort()
	merged.Dedup()
	return merged, nil
}

// runFile dispatches rules over one tree, checking cancellation between
// node visits.
func (r *Runner) runFile(ctx context.Context, snap *compile.Snapshot, fileID source.FileID, bag *diag.Bag) error {
	tree := snap.Tree(fileID)
	if tree == nil {
		return nil
	}

	rep := r.reporter(bag)
	var walkErr error
	tree.Walk(tree.Root, func(id syntax.NodeID) bool {
		select {
		case <-ctx.Done():
			walkErr = ctx.Err()
			return false
		default:
		}

		for _, rule := range r.reg.interested(tree.Get(id).Kind) {
			r.dispatch(rule, &Context{
				Snap:     snap,
				Tree:     tree,
				File:     fileID,
				Node:     id,
				Reporter: rep,
			})
		}
		return true
	})
	return walkErr
}

// dispatch runs one rule at one node, converting a panic into a
// rule-internal-failure diagnostic so the rest of the pass survives.
func (r *Runner) dispatch(rule Rule, ctx *Context) {
	defer func() {
		if rec := recover(); rec != nil {
			span := ctx.Tree.Get(ctx.Node).Span
			diag.ReportWarning(ctx.Reporter, diag.EngRulePanic, span,
				fmt.Sprintf("rule %s failed at this node: %v", rule.Code().ID(), rec)).Emit()
		}
	}()
	rule.Visit(ctx)
}

// reporter wraps a bag reporter with the pass's severity overrides.
func (r *Runner) reporter(bag *diag.Bag) diag.Reporter {
	var rep diag.Reporter = diag.BagReporter{Bag: bag}
	if len(r.opts.Severity) > 0 {
		rep = severityReporter{next: rep, overrides: r.opts.Severity}
	}
	return rep
}

type severityReporter struct {
	next      diag.Reporter
	overrides map[diag.Code]diag.Severity
}

func (s severityReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixID string) {
	if override, ok := s.overrides[code]; ok {
		sev = override
	}
	s.next.Report(code, sev, primary, msg, notes, fixID)
}
