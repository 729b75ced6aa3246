// Package diag defines the diagnostic model shared by every engine in the
// pipeline.
//
// Diagnostic is the central record: severity, stable code, message, primary
// span, optional notes and an optional fixer association. Diagnostics are
// immutable after creation and are recomputed wholesale on every pass; there
// is no incremental patching of a previous pass's findings.
//
// Producers emit through the Reporter interface so that emission stays
// decoupled from storage. BagReporter collects into a Bag, which supports
// merging worker-local bags, deterministic sorting and deduplication; the
// Bag is the aggregation point for parallel rule dispatch, so Merge is a
// plain commutative append and ordering is restored by a single Sort at the
// end of the pass.
//
// TextEdit lives here rather than in the fix engine because rules and
// generators describe candidate edits in diagnostic terms; OldText acts as a
// staleness guard that the fix engine re-validates before applying anything.
//
// The package performs no formatting and no IO. Rendering lives in
// internal/diagfmt, fix application in internal/fix.
package diag
