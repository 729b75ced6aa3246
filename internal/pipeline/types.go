// Package pipeline orchestrates one run of the engines: load units, analyze
// them, and optionally fix or generate. It owns the progress event stream
// the terminal UI consumes and the phase timer attached to a run's output.
package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad covers reading and parsing units.
	StageLoad Stage = "load"
	// StageAnalyze covers the rule pass.
	StageAnalyze Stage = "analyze"
	// StageFix covers fix computation and application.
	StageFix Stage = "fix"
	// StageGenerate covers the generation scan.
	StageGenerate Stage = "generate"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a unit, or for the overall pipeline when File
// is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}
