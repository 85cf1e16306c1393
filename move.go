package main

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/depot-cli/depot-go/internal/relocate"
	"github.com/depot-cli/depot-go/internal/repopath"
)

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <source> <destination>",
		Short: "Move or rename an item",
		Long: `Move or rename an item in the repository.

A destination with a trailing slash means move-into: the source keeps its
base name inside that folder, which is created if needed. Without a trailing
slash the source is renamed to exactly the destination path.`,
		Args: cobra.ExactArgs(2),
		RunE: runMv,
	}

	cmd.Flags().Bool("dry-run", false, "validate the move server-side without relocating data")

	return cmd
}

func newMvDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv-dir <source-dir> <dest-dir>",
		Short: "Move a folder's files into another folder",
		Long: `Move the immediate file children of a source folder into a destination
folder. Sub-folders are left in place. Moves run in parallel; items that
fail are reported individually and do not stop the others.`,
		Args: cobra.ExactArgs(2),
		RunE: runMvDir,
	}

	cmd.Flags().String("pattern", "", "glob pattern selecting file names to move (default: all)")
	cmd.Flags().Bool("dry-run", false, "validate the moves server-side without relocating data")
	cmd.Flags().Int("workers", 0, "parallel move workers (default 8)")

	return cmd
}

func runMv(cmd *cobra.Command, args []string) error {
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	source := args[0]
	destination := args[1]

	logger := buildLogger()
	engine := relocate.NewEngine(newDepotClient(logger), logger)

	if err := engine.MoveItem(cmd.Context(), source, destination, dryRun); err != nil {
		return err
	}

	if dryRun {
		statusf("Dry run OK: %s -> %s\n", source, destination)
	} else {
		statusf("Moved %s -> %s\n", source, destination)
	}

	return nil
}

func runMvDir(cmd *cobra.Command, args []string) error {
	pattern, err := cmd.Flags().GetString("pattern")
	if err != nil {
		return err
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	if workers == 0 {
		workers = resolvedCfg.ParallelMoves
	}

	var filter relocate.FilterFunc

	if pattern != "" {
		g, globErr := glob.Compile(pattern)
		if globErr != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, globErr)
		}

		filter = g.Match
	}

	sourceDir := repopath.AsDirectory(repopath.Clean(args[0]))
	destDir := repopath.AsDirectory(repopath.Clean(args[1]))

	logger := buildLogger()
	engine := relocate.NewEngine(newDepotClient(logger), logger)

	result, err := engine.MoveItems(cmd.Context(), sourceDir, destDir, relocate.BatchOpts{
		Filter:  filter,
		DryRun:  dryRun,
		Workers: workers,
	})
	if err != nil {
		if errors.Is(err, relocate.ErrEmptySourceDir) {
			return fmt.Errorf("nothing to move: %s is empty", sourceDir)
		}

		// Partial failure: report both sides before failing.
		if result != nil {
			reportBatch(result)
		}

		return err
	}

	reportBatch(result)

	return nil
}

// reportBatch prints the settled outcome of a batch move.
func reportBatch(result *relocate.Result) {
	statusf("Moved %d item(s)\n", len(result.Moved))

	for _, f := range result.Failed {
		statusf("Failed: %s: %v\n", f.Source, f.Err)
	}
}
