package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/compile"
	"prism/internal/diag"
	"prism/internal/diagfmt"
	"prism/internal/pipeline"
	"prism/internal/provider"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [directory]",
	Short: "Run analysis rules over a unit directory",
	Long:  "Load every declaration unit, run the rule pass, and report the findings. Without a directory argument the project manifest decides where units live.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fixes", false, "show fix identifiers next to findings")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().String("ui", "off", "interactive progress display (auto|on|off)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd, args)
	if err != nil {
		return err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	showFixes, err := cmd.Flags().GetBool("fixes")
	if err != nil {
		return fmt.Errorf("failed to get fixes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	var (
		snap *compile.Snapshot
		bag  *diag.Bag
	)
	run := func(sink pipeline.ProgressSink) error {
		opts := proj.opts
		opts.Sink = sink
		p := pipeline.New(opts)
		s, loadBag, err := p.LoadDir(proj.dir)
		if err != nil {
			return err
		}
		b, err := p.Check(cmd.Context(), s, loadBag)
		if err != nil {
			return err
		}
		snap, bag = s, b
		return nil
	}

	if shouldUseTUI(mode) {
		units, err := provider.ListUnits(proj.dir)
		if err != nil {
			return err
		}
		err = runWithUI(fmt.Sprintf("checking %s", proj.dir), units, run)
		if err != nil {
			return err
		}
	} else if err := run(nil); err != nil {
		return err
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "pretty":
		color, err := useColor(cmd)
		if err != nil {
			return err
		}
		diagfmt.Pretty(os.Stdout, bag, snap.FS, diagfmt.PrettyOpts{
			Color:     color,
			PathMode:  pathMode,
			ShowNotes: withNotes,
			ShowFixes: showFixes,
		})
	case "json":
		if err := diagfmt.JSON(os.Stdout, bag, snap.FS, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if bag.HasErrors() {
		// Suppress cobra usage output; the findings are already printed.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	return nil
}
