package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/diagfmt"
	"prism/internal/gen"
	"prism/internal/pipeline"
	"prism/internal/provider"
)

var genCmd = &cobra.Command{
	Use:   "gen [flags] [directory]",
	Short: "Run incremental code generation over a unit directory",
	Long:  "Scan marked declarations, recompute the units whose inputs changed, and write the results to the output directory. Units for removed declarations are retracted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGen,
}

func init() {
	genCmd.Flags().String("out", "", "output directory (default from prism.toml, else <dir>/gen)")
	genCmd.Flags().Bool("no-cache", false, "disable the on-disk unit cache")
	genCmd.Flags().Bool("dry-run", false, "report what would be generated without writing files")
	genCmd.Flags().String("ui", "off", "interactive progress display (auto|on|off)")
}

func runGen(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd, args)
	if err != nil {
		return err
	}

	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	if outDir == "" {
		outDir = proj.outDir
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	cacheWanted := proj.manifest != nil && proj.manifest.Config.Generate.Cache
	if cacheWanted && !noCache {
		cache, err := gen.OpenDiskCache("prism")
		if err != nil {
			return fmt.Errorf("gen: open cache: %w", err)
		}
		proj.opts.Cache = cache
	}

	var res *gen.Result
	run := func(sink pipeline.ProgressSink) error {
		opts := proj.opts
		opts.Sink = sink
		p := pipeline.New(opts)
		snap, loadBag, err := p.LoadDir(proj.dir)
		if err != nil {
			return err
		}
		if loadBag.HasErrors() {
			color, colorErr := useColor(cmd)
			if colorErr != nil {
				color = false
			}
			diagfmt.Pretty(os.Stderr, loadBag, snap.FS, diagfmt.PrettyOpts{Color: color})
			return fmt.Errorf("units do not parse; fix the errors above first")
		}
		res, err = p.Generate(cmd.Context(), snap)
		if err != nil {
			return err
		}
		if res.Diags.Len() > 0 {
			color, colorErr := useColor(cmd)
			if colorErr != nil {
				color = false
			}
			diagfmt.Pretty(os.Stderr, res.Diags, snap.FS, diagfmt.PrettyOpts{Color: color, ShowNotes: true})
		}
		return nil
	}

	if shouldUseTUI(mode) {
		units, err := provider.ListUnits(proj.dir)
		if err != nil {
			return err
		}
		if err := runWithUI(fmt.Sprintf("generating %s", proj.dir), units, run); err != nil {
			return err
		}
	} else if err := run(nil); err != nil {
		return err
	}

	if !dryRun {
		if err := pipeline.WriteUnits(outDir, res); err != nil {
			return fmt.Errorf("gen: %w", err)
		}
	}

	fmt.Fprintf(os.Stdout, "Generated %d unit(s): %d recomputed, %d reused, %d retracted.\n",
		len(res.Units), res.Recomputed, res.Reused, len(res.Retracted))
	if dryRun {
		for _, unit := range res.Units {
			fmt.Fprintf(os.Stdout, "  would write %s (%d bytes)\n", unit.Path, len(unit.Content))
		}
		for _, path := range res.Retracted {
			fmt.Fprintf(os.Stdout, "  would retract %s\n", path)
		}
	}

	if res.Diags.HasErrors() {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	return nil
}
