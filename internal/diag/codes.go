package diag

import (
	"fmt"
)

// Code is a compact, stable identifier for a diagnostic's origin.
// Ranges: 1xxx rule findings, 2xxx engine-internal failures, 3xxx fix
// engine records, 4xxx generation engine records, 5xxx input/host records,
// 9xxx observability.
type Code uint16

const (
	UnknownCode Code = 0

	// Rule findings
	RuleCountCompare Code = 1001
	RuleAsyncNaming  Code = 1002
	RuleMatchBool    Code = 1003

	// Engine-internal
	EngRulePanic Code = 2001

	// Fix engine
	FixUnavailable   Code = 3001
	FixNameCollision Code = 3002
	FixStaleEdit     Code = 3003
	FixSpanConflict  Code = 3004

	// Generation engine
	GenPrecondition Code = 4001
	GenInternal     Code = 4002

	// Input / host
	InpMalformed  Code = 5001
	InpUnreadable Code = 5002

	// Observability
	ObsTimings Code = 9001
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown diagnostic",

	RuleCountCompare: "count compared against zero",
	RuleAsyncNaming:  "task-returning declaration without Async suffix",
	RuleMatchBool:    "boolean pattern match collapsible to type test",

	EngRulePanic: "rule failed internally",

	FixUnavailable:   "no fix available",
	FixNameCollision: "rename would collide with an existing name",
	FixStaleEdit:     "edit is stale",
	FixSpanConflict:  "edits overlap",

	GenPrecondition: "generator precondition violated",
	GenInternal:     "generator failed internally",

	InpMalformed:  "malformed input",
	InpUnreadable: "input not readable",

	ObsTimings: "pass timings",
}

// ID returns the short prefixed form, e.g. RULE1001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RULE%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ENG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("INP%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("OBS%04d", ic)
	default:
		return fmt.Sprintf("UNK%04d", ic)
	}
}

// Title returns the short human description for the code.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
