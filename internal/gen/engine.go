package gen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/project"
	"prism/internal/syntax"
)

// State is a marked declaration's position in the generation lifecycle.
type State uint8

const (
	// StateUnseen means no output has ever been computed for the key.
	StateUnseen State = iota
	// StateComputed means the stored unit matches the current input digest.
	StateComputed
	// StateStale means the declaration changed under a stored unit.
	StateStale
	// StateRemoved means the declaration disappeared and its unit was
	// retracted.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateComputed:
		return "computed"
	case StateStale:
		return "stale"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Options tunes a generation engine.
type Options struct {
	// Jobs caps compute parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Cache persists units across processes, keyed by input digest. Nil
	// disables the disk tier; the in-memory tier always runs.
	Cache *DiskCache
}

// Result is the outcome of one scan.
type Result struct {
	// Units holds every live generated unit after the scan, in marker
	// discovery order.
	Units []Unit
	// Reused counts units served from a tier without running a generator.
	Reused int
	// Recomputed counts generator executions.
	Recomputed int
	// Retracted lists unit paths whose declarations disappeared.
	Retracted []string
	// Diags carries precondition violations and generator failures.
	Diags *diag.Bag
}

// Engine drives generators incrementally across successive snapshots. State
// is keyed by (file path, generator, declaration name), so edits to one
// declaration never invalidate another's output.
type Engine struct {
	reg   *Registry
	cache *DiskCache
	jobs  int

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	hash  project.Digest
	unit  Unit
	state State
}

func NewEngine(reg *Registry, opts Options) *Engine {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		reg:     reg,
		cache:   opts.Cache,
		jobs:    jobs,
		entries: make(map[string]*entry),
	}
}

// target is one marker occurrence scheduled for this scan.
type target struct {
	key  string
	hash project.Digest
	in   *Input
	gen  Generator
}

// Scan walks every marked declaration of the snapshot, recomputes exactly
// the units whose input digest changed, reuses the rest and retracts units
// whose declarations are gone. A cancelled context aborts the whole scan
// without committing any state.
func (e *Engine) Scan(ctx context.Context, snap *compile.Snapshot) (*Result, error) {
	targets := e.collect(snap)

	res := &Result{Diags: diag.NewBag(256)}
	rep := diag.BagReporter{Bag: res.Diags}

	// Classify against stored state. Entries are only read here; commits
	// happen after the parallel phase so a failed scan changes nothing.
	type planned struct {
		t       target
		compute bool
	}
	plan := make([]planned, len(targets))
	e.mu.Lock()
	for i, t := range targets {
		prev, ok := e.entries[t.key]
		switch {
		case !ok:
			plan[i] = planned{t: t, compute: true}
		case prev.hash != t.hash:
			prev.state = StateStale
			plan[i] = planned{t: t, compute: true}
		default:
			plan[i] = planned{t: t}
		}
	}
	e.mu.Unlock()

	type outcome struct {
		unit     Unit
		fromDisk bool
		err      error
	}
	outs := make([]outcome, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i := range plan {
		if !plan[i].compute {
			continue
		}
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			t := plan[i].t
			if unit, ok := e.fromDisk(t.hash); ok {
				outs[i] = outcome{unit: unit, fromDisk: true}
				return nil
			}
			unit, err := runGenerator(t.gen, t.in)
			outs[i] = outcome{unit: unit, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Commit in discovery order so counters and unit order are stable.
	live := make(map[string]bool, len(plan))
	e.mu.Lock()
	for i, p := range plan {
		live[p.t.key] = true
		if !p.compute {
			ent := e.entries[p.t.key]
			ent.state = StateComputed
			res.Units = append(res.Units, ent.unit)
			res.Reused++
			continue
		}

		out := outs[i]
		if out.err != nil {
			e.reportFailure(rep, p.t, out.err)
			delete(e.entries, p.t.key)
			continue
		}
		unit := out.unit
		unit.Owner = p.t.in.Name
		unit.Hash = p.t.hash
		e.entries[p.t.key] = &entry{hash: p.t.hash, unit: unit, state: StateComputed}
		res.Units = append(res.Units, unit)
		if out.fromDisk {
			res.Reused++
		} else {
			res.Recomputed++
			e.toDisk(p.t.hash, unit)
		}
	}

	for key, ent := range e.entries {
		if live[key] {
			continue
		}
		ent.state = StateRemoved
		res.Retracted = append(res.Retracted, ent.unit.Path)
		delete(e.entries, key)
	}
	e.mu.Unlock()

	sort.Strings(res.Retracted)
	return res, nil
}

// collect walks the snapshot for marker occurrences that name a registered
// generator, in file and declaration order.
func (e *Engine) collect(snap *compile.Snapshot) []target {
	var targets []target
	for _, fileID := range snap.Trees() {
		tree := snap.Tree(fileID)
		path := snap.FS.Get(fileID).Path
		for _, decl := range tree.Decls() {
			nameNode := tree.FirstChildOfKind(decl, syntax.KindIdent)
			if !nameNode.IsValid() {
				continue
			}
			name := snap.NodeText(fileID, nameNode)

			for _, marker := range tree.Markers(decl) {
				markerName := snap.Table.Interner.MustLookup(tree.Get(marker).Text)
				gen, ok := e.reg.Lookup(markerName)
				if !ok {
					continue
				}
				cfg := configOf(snap, tree, marker)
				in := &Input{
					Snap:   snap,
					File:   fileID,
					Decl:   decl,
					Marker: marker,
					Name:   name,
					Config: cfg,
				}
				targets = append(targets, target{
					key:  path + "\x00" + gen.Name() + "\x00" + name,
					hash: inputDigest(gen, in),
					in:   in,
					gen:  gen,
				})
			}
		}
	}
	return targets
}

// inputDigest keys a unit by everything that may change its bytes: the
// generator's identity and version, the declaration's full text, and the
// marker configuration.
func inputDigest(gen Generator, in *Input) project.Digest {
	head := project.DigestStrings(gen.Name(), fmt.Sprintf("v%d", gen.Version()), in.DeclText())
	if len(in.Config) == 0 {
		return head
	}
	return project.Combine(head, project.DigestStrings(in.Config.pairs()...))
}

// runGenerator executes one generator, converting a panic into an error so
// a broken generator cannot take down the scan.
func runGenerator(gen Generator, in *Input) (unit Unit, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generator %s panicked: %v", gen.Name(), rec)
		}
	}()
	return gen.Generate(in)
}

func (e *Engine) reportFailure(rep diag.Reporter, t target, err error) {
	span := t.in.Snap.Tree(t.in.File).Get(t.in.Marker).Span
	var pre *PreconditionError
	if errors.As(err, &pre) {
		diag.ReportError(rep, diag.GenPrecondition, span, pre.Msg).Emit()
		return
	}
	diag.ReportError(rep, diag.GenInternal, span,
		fmt.Sprintf("generator %s: %v", t.gen.Name(), err)).Emit()
}

func (e *Engine) fromDisk(key project.Digest) (Unit, bool) {
	if e.cache == nil {
		return Unit{}, false
	}
	var payload Payload
	ok, err := e.cache.Get(key, &payload)
	if err != nil || !ok || payload.Schema != cacheSchemaVersion {
		return Unit{}, false
	}
	return Unit{Path: payload.Path, Content: payload.Content}, true
}

func (e *Engine) toDisk(key project.Digest, unit Unit) {
	if e.cache == nil {
		return
	}
	// Best effort: a failed cache write only costs a future recompute.
	_ = e.cache.Put(key, &Payload{
		Schema:  cacheSchemaVersion,
		Path:    unit.Path,
		Content: unit.Content,
	})
}
