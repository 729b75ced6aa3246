package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/diag"
	"prism/internal/diagfmt"
	"prism/internal/fix"
	"prism/internal/pipeline"
	"prism/internal/source"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] [directory]",
	Short: "Apply available fixes to a unit directory",
	Long:  "Run the rule pass, compute fixes for the findings, and apply them according to the chosen strategy. Edited units are written back only when every edit of every accepted fix lands.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply all applicable fixes")
	fixCmd.Flags().Bool("once", false, "apply the first available fix (default)")
	fixCmd.Flags().String("id", "", "apply fixes with a specific identifier")
	fixCmd.Flags().Bool("dry-run", false, "report what would change without writing files")
}

func runFix(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd, args)
	if err != nil {
		return err
	}

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnceFlag, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	if targetID != "" && (applyAll || applyOnceFlag) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnceFlag {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}

	p := pipeline.New(proj.opts)
	snap, loadBag, err := p.LoadDir(proj.dir)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	bag, err := p.Check(cmd.Context(), snap, loadBag)
	if err != nil {
		return fmt.Errorf("fix: check failed: %w", err)
	}

	out, rejected, applyErr := p.Fix(snap, bag, fix.ApplyOptions{
		Mode:     mode,
		TargetID: targetID,
	})

	if !dryRun && out != nil && out.Snap != nil {
		if err := writeChanges(out); err != nil {
			return fmt.Errorf("fix: %w", err)
		}
	}

	refusals := diag.NewBag(int(bag.Cap()))
	if rejected != nil {
		refusals.Merge(rejected)
	}
	if out != nil && out.Rejected != nil {
		refusals.Merge(out.Rejected)
	}
	refusals.Sort()

	return reportFixOutcome(cmd, out, refusals, snap.FS, applyErr, dryRun)
}

// writeChanges lands the successor snapshot's contents for every changed
// file. The snapshot already passed the rebuild check, so a partial write can
// only come from the filesystem itself.
func writeChanges(out *fix.Outcome) error {
	for _, change := range out.Changes {
		f, ok := out.Snap.FS.GetByPath(change.Path)
		if !ok {
			return fmt.Errorf("no content for changed file %s", change.Path)
		}
		if err := os.WriteFile(change.Path, f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", change.Path, err)
		}
	}
	return nil
}

func reportFixOutcome(cmd *cobra.Command, out *fix.Outcome, refusals *diag.Bag, fs *source.FileSet, applyErr error, dryRun bool) error {
	if out == nil {
		return applyErr
	}

	if len(out.Applied) > 0 {
		verb := "Applied"
		if dryRun {
			verb = "Would apply"
		}
		fmt.Fprintf(os.Stdout, "%s %d fix(es):\n", verb, len(out.Applied))
		for _, item := range out.Applied {
			fmt.Fprintf(os.Stdout, "  %s [%s] (%s, %d edits)\n",
				item.Title, item.ID, item.Kind, item.EditCount)
		}
	}

	if len(out.Changes) > 0 {
		header := "Updated files:"
		if dryRun {
			header = "Files that would change:"
		}
		fmt.Fprintln(os.Stdout, header)
		for _, change := range out.Changes {
			fmt.Fprintf(os.Stdout, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}

	if len(out.Skipped) > 0 {
		fmt.Fprintln(os.Stdout, "Skipped fixes:")
		for _, skip := range out.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			fmt.Fprintf(os.Stdout, "  [%s]: %s\n", id, skip.Reason)
		}
	}

	printRefusals(cmd, refusals, fs)

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(out.Applied) == 0 {
			fmt.Fprintln(os.Stdout, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}

	if len(out.Applied) == 0 {
		fmt.Fprintln(os.Stdout, "No fixes applied.")
	}
	return nil
}

// printRefusals renders the diagnostics from fixes that could not be built
// or conflicted with an accepted one.
func printRefusals(cmd *cobra.Command, refusals *diag.Bag, fs *source.FileSet) {
	if refusals == nil || refusals.Len() == 0 {
		return
	}
	color, err := useColor(cmd)
	if err != nil {
		color = false
	}
	fmt.Fprintln(os.Stdout, "Refused fixes:")
	diagfmt.Pretty(os.Stdout, refusals, fs, diagfmt.PrettyOpts{Color: color})
}
