package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"prism/internal/pipeline"
	"prism/internal/ui"
)

// runWithUI drives a pipeline run behind the interactive progress display.
// The run callback receives a sink that feeds the display; its error is
// returned once the display has shut down.
func runWithUI(title string, units []string, run func(pipeline.ProgressSink) error) error {
	events := make(chan pipeline.Event, 256)
	errCh := make(chan error, 1)

	go func() {
		errCh <- run(pipeline.ChannelSink{Ch: events})
		close(events)
	}()

	model := ui.NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	err := <-errCh
	if uiErr != nil {
		return uiErr
	}
	return err
}
