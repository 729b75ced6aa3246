package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prism/internal/pipeline"
	"prism/internal/project"
)

// projectContext carries everything a command needs to run the pipeline: the
// resolved unit directory, the generation output directory, and the pipeline
// options assembled from the manifest and the command's flags. Flags win over
// manifest values, which win over defaults.
type projectContext struct {
	manifest *project.Manifest
	dir      string
	outDir   string
	opts     pipeline.Options
}

func loadProject(cmd *cobra.Command, args []string) (*projectContext, error) {
	start := "."
	if len(args) > 0 {
		start = args[0]
	}

	man, found, err := project.LoadManifest(start)
	if err != nil {
		return nil, err
	}

	dir := start
	outDir := filepath.Join(dir, "gen")
	opts := pipeline.Options{}

	if found {
		if len(args) == 0 {
			dir = man.SourceDir()
		}
		outDir = man.OutputDir()
		opts.Jobs = man.Config.Run.Jobs
		opts.MaxDiagnostics = man.Config.Run.MaxDiagnostics
		if opts.Disabled, err = man.DisabledCodes(); err != nil {
			return nil, err
		}
		if opts.Severity, err = man.SeverityOverrides(); err != nil {
			return nil, err
		}
	}

	flags := cmd.Root().PersistentFlags()
	if flags.Changed("jobs") || opts.Jobs == 0 {
		if opts.Jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if flags.Changed("max-diagnostics") || opts.MaxDiagnostics == 0 {
		if opts.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if opts.Timings, err = flags.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	return &projectContext{
		manifest: man,
		dir:      dir,
		outDir:   outDir,
		opts:     opts,
	}, nil
}

func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
}
