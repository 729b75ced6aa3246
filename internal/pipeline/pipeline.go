package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/fix"
	"prism/internal/gen"
	"prism/internal/observ"
	"prism/internal/provider"
	"prism/internal/rules"
	"prism/internal/source"
)

// Options configures a pipeline, usually from the project manifest plus
// command-line flags.
type Options struct {
	Jobs           int
	MaxDiagnostics int
	Disabled       map[diag.Code]bool
	Severity       map[diag.Code]diag.Severity
	Cache          *gen.DiskCache
	Sink           ProgressSink
	// Timings appends a phase-timing record to the run's diagnostics.
	Timings bool
}

// Pipeline bundles the engines behind the operations the CLI exposes.
type Pipeline struct {
	Timer *observ.Timer

	prov  *provider.Provider
	rules *rules.Runner
	fixer *fix.Engine
	gener *gen.Engine
	opts  Options
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		Timer: observ.NewTimer(),
		prov:  provider.New(),
		rules: rules.NewRunner(rules.DefaultRegistry(opts.Disabled), rules.Options{
			Jobs:           opts.Jobs,
			MaxDiagnostics: opts.MaxDiagnostics,
			Severity:       opts.Severity,
		}),
		fixer: fix.NewEngine(),
		gener: gen.NewEngine(gen.DefaultRegistry(), gen.Options{
			Jobs:  opts.Jobs,
			Cache: opts.Cache,
		}),
		opts: opts,
	}
}

// LoadDir reads every unit under dir into a snapshot, reporting per-file
// progress. Parse failures land in the returned bag, not in err.
func (p *Pipeline) LoadDir(dir string) (*compile.Snapshot, *diag.Bag, error) {
	idx := p.Timer.Begin(string(StageLoad))

	paths, err := provider.ListUnits(dir)
	if err != nil {
		p.Timer.End(idx, "")
		return nil, nil, err
	}
	for _, path := range paths {
		emit(p.opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	fileSet := source.NewFileSetWithBase(dir)
	for _, path := range paths {
		started := time.Now()
		emit(p.opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusWorking})
		if _, err := fileSet.Load(path); err != nil {
			emit(p.opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
			p.Timer.End(idx, "")
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		emit(p.opts.Sink, Event{File: path, Stage: StageLoad, Status: StatusDone, Elapsed: time.Since(started)})
	}

	snap, bag, err := p.prov.Build(fileSet)
	p.Timer.End(idx, fmt.Sprintf("%d units", len(paths)))
	return snap, bag, err
}

// FromContents builds a snapshot from in-memory units.
func (p *Pipeline) FromContents(contents map[string][]byte) (*compile.Snapshot, *diag.Bag, error) {
	return p.prov.FromContents(contents)
}

// Rebuild exposes the provider's rebuild hook for fix application.
func (p *Pipeline) Rebuild() compile.RebuildFunc {
	return p.prov.Rebuild()
}

// Check runs the rule pass and merges its findings with the load
// diagnostics. The result is sorted and deduplicated; with Timings set the
// phase timings ride along as a final info record.
func (p *Pipeline) Check(ctx context.Context, snap *compile.Snapshot, loadBag *diag.Bag) (*diag.Bag, error) {
	idx := p.Timer.Begin(string(StageAnalyze))
	emit(p.opts.Sink, Event{Stage: StageAnalyze, Status: StatusWorking})

	ruleBag, err := p.rules.RunPass(ctx, snap)
	if err != nil {
		emit(p.opts.Sink, Event{Stage: StageAnalyze, Status: StatusError, Err: err})
		p.Timer.End(idx, "")
		return nil, err
	}

	maxDiags := p.opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = provider.DefaultMaxDiagnostics
	}
	merged := diag.NewBag(maxDiags)
	if loadBag != nil {
		merged.Merge(loadBag)
	}
	merged.Merge(ruleBag)
	merged.Sort()
	merged.Dedup()

	p.Timer.End(idx, fmt.Sprintf("%d findings", merged.Len()))
	emit(p.opts.Sink, Event{Stage: StageAnalyze, Status: StatusDone})

	if p.opts.Timings {
		p.Timer.Emit(diag.BagReporter{Bag: merged})
	}
	return merged, nil
}

// Fix computes fixes for the bag's findings and applies the selection. The
// outcome's Rejected bag carries refusals and overlaps; err is reserved for
// stale edits and rebuild failures.
func (p *Pipeline) Fix(snap *compile.Snapshot, bag *diag.Bag, opts fix.ApplyOptions) (*fix.Outcome, *diag.Bag, error) {
	idx := p.Timer.Begin(string(StageFix))
	emit(p.opts.Sink, Event{Stage: StageFix, Status: StatusWorking})

	fixes, rejected := p.fixer.Compute(snap, bag.Items())
	out, err := p.fixer.Apply(snap, p.prov.Rebuild(), fixes, opts)
	p.Timer.End(idx, fmt.Sprintf("%d fixes", len(fixes)))
	if err != nil {
		emit(p.opts.Sink, Event{Stage: StageFix, Status: StatusError, Err: err})
		return out, rejected, err
	}
	emit(p.opts.Sink, Event{Stage: StageFix, Status: StatusDone})
	return out, rejected, nil
}

// Generate runs the incremental generation scan over the snapshot.
func (p *Pipeline) Generate(ctx context.Context, snap *compile.Snapshot) (*gen.Result, error) {
	idx := p.Timer.Begin(string(StageGenerate))
	emit(p.opts.Sink, Event{Stage: StageGenerate, Status: StatusWorking})

	res, err := p.gener.Scan(ctx, snap)
	if err != nil {
		emit(p.opts.Sink, Event{Stage: StageGenerate, Status: StatusError, Err: err})
		p.Timer.End(idx, "")
		return nil, err
	}
	p.Timer.End(idx, fmt.Sprintf("%d units, %d reused", len(res.Units), res.Reused))
	emit(p.opts.Sink, Event{Stage: StageGenerate, Status: StatusDone})
	return res, nil
}

// WriteUnits lands a scan's units under outDir and removes files for
// retracted units. Unit paths are flattened to their base name; the scan
// already guarantees they are unique per declaration and generator.
func WriteUnits(outDir string, res *gen.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, unit := range res.Units {
		dst := filepath.Join(outDir, filepath.Base(unit.Path))
		if err := os.WriteFile(dst, unit.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	for _, path := range res.Retracted {
		dst := filepath.Join(outDir, filepath.Base(path))
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("retract %s: %w", dst, err)
		}
	}
	return nil
}
