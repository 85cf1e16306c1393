package relocate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-cli/depot-go/internal/depot"
)

// fakeRemote implements Remote with canned responses and call recording.
// Move calls arrive concurrently from the worker pool, so the records are
// mutex-protected.
type fakeRemote struct {
	mu sync.Mutex

	folderInfo    *depot.FolderInfo
	folderInfoErr error

	ensureResult depot.EnsureResult
	ensureErr    error
	ensureCalls  []string

	moveErrs  map[string]error // keyed by source path
	moveCalls []moveCall
}

type moveCall struct {
	source      string
	destination string
	dryRun      bool
}

func (f *fakeRemote) GetFolderInfo(_ context.Context, _ string) (*depot.FolderInfo, error) {
	return f.folderInfo, f.folderInfoErr
}

func (f *fakeRemote) EnsureDir(_ context.Context, repoPath string) (depot.EnsureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ensureCalls = append(f.ensureCalls, repoPath)

	return f.ensureResult, f.ensureErr
}

func (f *fakeRemote) Move(_ context.Context, source, destination string, dryRun bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.moveCalls = append(f.moveCalls, moveCall{source: source, destination: destination, dryRun: dryRun})

	return f.moveErrs[source]
}

func (f *fakeRemote) movedSources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	sources := make([]string, len(f.moveCalls))
	for i, c := range f.moveCalls {
		sources[i] = c.source
	}

	return sources
}

func newTestEngine(t *testing.T, remote *fakeRemote) *Engine {
	t.Helper()

	return NewEngine(remote, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMoveItem_FileDestinationIsRename(t *testing.T) {
	remote := &fakeRemote{}
	engine := newTestEngine(t, remote)

	err := engine.MoveItem(context.Background(), "repo/dir/a.zip", "repo/dir/b.zip", false)
	require.NoError(t, err)

	assert.Empty(t, remote.ensureCalls, "file-shaped destination must not create directories")
	require.Len(t, remote.moveCalls, 1)
	assert.Equal(t, moveCall{source: "repo/dir/a.zip", destination: "repo/dir/b.zip"}, remote.moveCalls[0])
}

func TestMoveItem_DirDestinationEnsuredFirst(t *testing.T) {
	remote := &fakeRemote{ensureResult: depot.DirCreated}
	engine := newTestEngine(t, remote)

	err := engine.MoveItem(context.Background(), "repo/dir/a.zip", "repo/archive/", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"repo/archive/"}, remote.ensureCalls)
	require.Len(t, remote.moveCalls, 1)
	assert.Equal(t, "repo/archive/", remote.moveCalls[0].destination)
}

func TestMoveItem_EnsureDirFailureAborts(t *testing.T) {
	remote := &fakeRemote{
		ensureErr: &depot.APIError{StatusCode: http.StatusForbidden, Err: depot.ErrForbidden},
	}
	engine := newTestEngine(t, remote)

	err := engine.MoveItem(context.Background(), "repo/a.zip", "repo/archive/", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, depot.ErrForbidden)
	assert.Empty(t, remote.moveCalls)
}

func TestMoveItem_ServerRejection(t *testing.T) {
	remote := &fakeRemote{
		moveErrs: map[string]error{
			"repo/a.zip": &depot.APIError{StatusCode: http.StatusNotFound, Err: depot.ErrNotFound},
		},
	}
	engine := newTestEngine(t, remote)

	err := engine.MoveItem(context.Background(), "repo/a.zip", "repo/b.zip", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMoveRejected)
	assert.ErrorIs(t, err, depot.ErrNotFound)
}

func TestMoveItem_DryRunPassedThrough(t *testing.T) {
	remote := &fakeRemote{}
	engine := newTestEngine(t, remote)

	require.NoError(t, engine.MoveItem(context.Background(), "repo/a.zip", "repo/b.zip", true))
	require.Len(t, remote.moveCalls, 1)
	assert.True(t, remote.moveCalls[0].dryRun)
}

func TestMoveItems_FilterSelectsFiles(t *testing.T) {
	remote := &fakeRemote{
		folderInfo: &depot.FolderInfo{
			Children: []depot.Child{
				{Name: "a.zip"},
				{Name: "b.txt"},
				{Name: "c.zip"},
				{Name: "sub", Folder: true},
			},
		},
	}
	engine := newTestEngine(t, remote)

	filter := func(name string) bool { return len(name) > 4 && name[len(name)-4:] == ".zip" }

	result, err := engine.MoveItems(context.Background(), "repo/dir", "repo/archive", BatchOpts{Filter: filter})
	require.NoError(t, err)

	assert.Equal(t, []string{"repo/dir/a.zip", "repo/dir/c.zip"}, result.Moved)
	assert.Empty(t, result.Failed)
	assert.ElementsMatch(t, []string{"repo/dir/a.zip", "repo/dir/c.zip"}, remote.movedSources())

	// The destination is prepared exactly once, not per item.
	assert.Equal(t, []string{"repo/archive/"}, remote.ensureCalls)
}

func TestMoveItems_NilFilterMovesEverything(t *testing.T) {
	remote := &fakeRemote{
		folderInfo: &depot.FolderInfo{
			Children: []depot.Child{{Name: "a.zip"}, {Name: "b.txt"}},
		},
	}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/dir/", "repo/archive/", BatchOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"repo/dir/a.zip", "repo/dir/b.txt"}, result.Moved)
}

func TestMoveItems_EmptySourceDir(t *testing.T) {
	remote := &fakeRemote{folderInfo: &depot.FolderInfo{}}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/empty", "repo/archive", BatchOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptySourceDir)
	assert.Nil(t, result)

	assert.Empty(t, remote.ensureCalls, "empty source must be detected before touching the destination")
	assert.Empty(t, remote.moveCalls)
}

func TestMoveItems_PartialFailureSettlesAll(t *testing.T) {
	remote := &fakeRemote{
		folderInfo: &depot.FolderInfo{
			Children: []depot.Child{{Name: "a.zip"}, {Name: "b.zip"}, {Name: "c.zip"}},
		},
		moveErrs: map[string]error{
			"repo/dir/b.zip": &depot.APIError{StatusCode: http.StatusConflict, Err: depot.ErrConflict},
		},
	}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/dir", "repo/archive", BatchOpts{Workers: 2})
	require.Error(t, err)
	require.NotNil(t, result, "partial failure still returns the settled result")

	assert.Equal(t, []string{"repo/dir/a.zip", "repo/dir/c.zip"}, result.Moved)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "repo/dir/b.zip", result.Failed[0].Source)
	assert.ErrorIs(t, result.Failed[0].Err, ErrMoveRejected)

	// All three were attempted despite the failure.
	assert.Len(t, remote.movedSources(), 3)
}

func TestMoveItems_ListingFailure(t *testing.T) {
	remote := &fakeRemote{
		folderInfoErr: &depot.APIError{StatusCode: http.StatusNotFound, Err: depot.ErrNotFound},
	}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/missing", "repo/archive", BatchOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, depot.ErrNotFound)
	assert.Nil(t, result)
}

func TestMoveItems_DestinationPreparationFailure(t *testing.T) {
	remote := &fakeRemote{
		folderInfo: &depot.FolderInfo{Children: []depot.Child{{Name: "a.zip"}}},
		ensureErr:  &depot.APIError{StatusCode: http.StatusForbidden, Err: depot.ErrForbidden},
	}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/dir", "repo/archive", BatchOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, depot.ErrForbidden)
	assert.Nil(t, result)
	assert.Empty(t, remote.moveCalls)
}

func TestMoveItems_DryRun(t *testing.T) {
	remote := &fakeRemote{
		folderInfo: &depot.FolderInfo{Children: []depot.Child{{Name: "a.zip"}}},
	}
	engine := newTestEngine(t, remote)

	result, err := engine.MoveItems(context.Background(), "repo/dir", "repo/archive", BatchOpts{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"repo/dir/a.zip"}, result.Moved)
	require.Len(t, remote.moveCalls, 1)
	assert.True(t, remote.moveCalls[0].dryRun)
}
