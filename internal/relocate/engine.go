// Package relocate implements move and rename semantics for Depot
// repository paths: the single-item move/rename disambiguation and the
// batch move with client-side filtering, a bounded worker pool, and
// per-item failure reporting.
package relocate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/depot-cli/depot-go/internal/depot"
	"github.com/depot-cli/depot-go/internal/repopath"
)

// defaultMoveWorkers bounds batch-move parallelism when the caller doesn't
// configure it.
const defaultMoveWorkers = 8

// Sentinel errors for relocation failures.
var (
	// ErrMoveRejected: the server refused a move or rename. The wrapped
	// *depot.APIError carries the status.
	ErrMoveRejected = errors.New("relocate: move rejected")

	// ErrEmptySourceDir: a batch move's source directory has no children.
	// Raised before any destination-directory creation or move.
	ErrEmptySourceDir = errors.New("relocate: source directory is empty")
)

// Remote is the server surface the engine needs. Satisfied by *depot.Client.
type Remote interface {
	GetFolderInfo(ctx context.Context, repoPath string) (*depot.FolderInfo, error)
	EnsureDir(ctx context.Context, repoPath string) (depot.EnsureResult, error)
	Move(ctx context.Context, source, destination string, dryRun bool) error
}

// FilterFunc selects batch-move candidates by base name. A nil filter
// accepts everything. Evaluation is purely client-side; the server is never
// asked to filter.
type FilterFunc func(name string) bool

// BatchOpts configures a batch move.
type BatchOpts struct {
	Filter  FilterFunc
	DryRun  bool
	Workers int // 0 = defaultMoveWorkers
}

// MoveFailure pairs a failed source path with its error.
type MoveFailure struct {
	Source string
	Err    error
}

// Result is the settled outcome of a batch move: which items were relocated
// and which failed, independently. Both slices are sorted by source path.
type Result struct {
	Moved  []string
	Failed []MoveFailure
}

// Engine orchestrates single-item and batch relocations. Stateless across
// calls; safe for concurrent use.
type Engine struct {
	remote Remote
	logger *slog.Logger
}

// NewEngine creates a relocation engine on top of a remote client.
func NewEngine(remote Remote, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{remote: remote, logger: logger}
}

// MoveItem moves or renames a single item. A directory-shaped destination
// (trailing separator) means move-into: the destination directory is ensured
// first, because the server treats a move to a non-existent directory-shaped
// target as a rename to that literal path. A file-shaped destination renames
// the source to exactly that path. With dryRun the server validates only;
// the success/failure contract is identical.
func (e *Engine) MoveItem(ctx context.Context, source, destination string, dryRun bool) error {
	e.logger.Debug("MoveItem",
		slog.String("source", source),
		slog.String("destination", destination),
		slog.Bool("dry_run", dryRun),
	)

	if repopath.IsDirectory(destination) {
		res, err := e.remote.EnsureDir(ctx, destination)
		if err != nil {
			return fmt.Errorf("preparing destination %s: %w", destination, err)
		}

		e.logger.Debug("destination directory ensured",
			slog.String("destination", destination),
			slog.String("result", res.String()),
		)
	}

	return e.moveOne(ctx, source, destination, dryRun)
}

// moveOne issues a single server-side move and wraps rejections. The
// destination is taken as-is; directory preparation is the caller's job.
func (e *Engine) moveOne(ctx context.Context, source, destination string, dryRun bool) error {
	if err := e.remote.Move(ctx, source, destination, dryRun); err != nil {
		var apiErr *depot.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s -> %s: %w", ErrMoveRejected, source, destination, err)
		}

		return fmt.Errorf("moving %s to %s: %w", source, destination, err)
	}

	return nil
}

// MoveItems relocates the filtered file children of sourceDir into destDir
// through a bounded worker pool. All selected moves are attempted; the
// returned Result reports the relocated and failed items independently. The
// error is non-nil when at least one move failed, wrapping the first
// failure, and also on the up-front failures (listing, empty source,
// destination preparation) — in those cases the Result is nil.
func (e *Engine) MoveItems(ctx context.Context, sourceDir, destDir string, opts BatchOpts) (*Result, error) {
	sourceDir = repopath.AsDirectory(sourceDir)
	destDir = repopath.AsDirectory(destDir)

	info, err := e.remote.GetFolderInfo(ctx, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", sourceDir, err)
	}

	if len(info.Children) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySourceDir, sourceDir)
	}

	if _, err := e.remote.EnsureDir(ctx, destDir); err != nil {
		return nil, fmt.Errorf("preparing destination %s: %w", destDir, err)
	}

	candidates := selectCandidates(info.Children, opts.Filter)

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultMoveWorkers
	}

	e.logger.Info("batch move starting",
		slog.String("source_dir", sourceDir),
		slog.String("dest_dir", destDir),
		slog.Int("candidates", len(candidates)),
		slog.Int("workers", workers),
		slog.Bool("dry_run", opts.DryRun),
	)

	result := e.dispatchMoves(ctx, sourceDir, destDir, candidates, workers, opts.DryRun)

	if len(result.Failed) > 0 {
		e.logger.Warn("batch move finished with failures",
			slog.Int("moved", len(result.Moved)),
			slog.Int("failed", len(result.Failed)),
		)

		return result, fmt.Errorf("relocate: %d of %d moves failed: %w",
			len(result.Failed), len(candidates), result.Failed[0].Err)
	}

	e.logger.Info("batch move complete", slog.Int("moved", len(result.Moved)))

	return result, nil
}

// selectCandidates keeps non-folder children with a resolvable name that
// pass the filter.
func selectCandidates(children []depot.Child, filter FilterFunc) []string {
	names := make([]string, 0, len(children))

	for i := range children {
		if children[i].Folder || children[i].Name == "" {
			continue
		}

		if filter != nil && !filter(children[i].Name) {
			continue
		}

		names = append(names, children[i].Name)
	}

	return names
}

// dispatchMoves runs one MoveItem per candidate through a bounded pool and
// settles all of them — a failed move never cancels the others.
func (e *Engine) dispatchMoves(
	ctx context.Context, sourceDir, destDir string,
	candidates []string, workers int, dryRun bool,
) *Result {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)

	g.SetLimit(workers)

	result := &Result{}

	for _, name := range candidates {
		source := repopath.Join(sourceDir, name)

		g.Go(func() error {
			// destDir is already ensured by MoveItems; go straight to the
			// server-side move.
			err := e.moveOne(ctx, source, destDir, dryRun)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Failed = append(result.Failed, MoveFailure{Source: source, Err: err})

				e.logger.Warn("move failed",
					slog.String("source", source),
					slog.String("error", err.Error()),
				)

				return nil // settle-all: other moves keep going
			}

			result.Moved = append(result.Moved, source)

			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	slices.Sort(result.Moved)
	slices.SortFunc(result.Failed, func(a, b MoveFailure) int {
		return cmp.Compare(a.Source, b.Source)
	})

	return result
}
