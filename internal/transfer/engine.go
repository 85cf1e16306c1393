// Package transfer implements the upload and download engine for Depot
// artifacts: source resolution (local path vs. remote URL), existence and
// overwrite checks, streaming copy, and optional post-transfer integrity
// verification against server-reported checksums.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/depot-cli/depot-go/internal/depot"
)

// remoteSourcePattern classifies an upload source as a remote URL rather
// than a local filesystem path.
var remoteSourcePattern = regexp.MustCompile(`^https?://`)

// DefaultArchiveType is the archive format requested for folder downloads
// when the caller doesn't specify one.
const DefaultArchiveType = "zip"

// UploadOpts configures a single upload operation.
type UploadOpts struct {
	// Force overwrites an existing artifact at the server path. Without it
	// an occupied destination fails with ErrDestinationExists before any
	// bytes are transferred.
	Force bool
}

// DownloadOpts configures a single download operation.
type DownloadOpts struct {
	// Verify computes the MD5 of the downloaded file and compares it with
	// the server-reported checksum. On mismatch the file is left in place
	// and the operation fails with an IntegrityError.
	Verify bool
}

// DownloadResult reports the outcome of a successful download.
type DownloadResult struct {
	Path     string // local destination
	Size     int64  // bytes written
	Checksum string // locally computed MD5, only set when verification ran
	Verified bool
}

// Engine orchestrates uploads and downloads. It holds no per-call state;
// one Engine is safe for concurrent use.
type Engine struct {
	uploads   Uploader
	downloads Downloader
	logger    *slog.Logger

	// fetch retrieves remote (URL-sourced) upload content. Defaults to
	// http.DefaultClient; tests and callers with timeout requirements
	// override it via NewEngineWithHTTP.
	fetch *http.Client

	// hashFunc computes local file checksums. Tests override it.
	hashFunc func(fsPath, algorithm string) (string, error)
}

// NewEngine creates a transfer engine on top of a remote client (typically
// one *depot.Client satisfying both interfaces).
func NewEngine(ul Uploader, dl Downloader, logger *slog.Logger) *Engine {
	return NewEngineWithHTTP(ul, dl, http.DefaultClient, logger)
}

// NewEngineWithHTTP is NewEngine with an explicit HTTP client for fetching
// remote upload sources.
func NewEngineWithHTTP(ul Uploader, dl Downloader, fetch *http.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	if fetch == nil {
		fetch = http.DefaultClient
	}

	return &Engine{
		uploads:   ul,
		downloads: dl,
		logger:    logger,
		fetch:     fetch,
		hashFunc:  ComputeChecksum,
	}
}

// UploadFile uploads a local file or a remote URL's content to serverPath.
// Local sources are existence-checked up front; remote sources are not (the
// fetch itself surfaces that failure). Unless opts.Force is set, an occupied
// destination fails with ErrDestinationExists and no bytes are transferred.
func (e *Engine) UploadFile(ctx context.Context, serverPath, source string, opts UploadOpts) (*depot.UploadInfo, error) {
	remote := remoteSourcePattern.MatchString(source)

	e.logger.Debug("UploadFile",
		slog.String("server_path", serverPath),
		slog.String("source", source),
		slog.Bool("remote_source", remote),
		slog.Bool("force", opts.Force),
	)

	if !remote {
		abs, err := filepath.Abs(source)
		if err != nil {
			return nil, fmt.Errorf("resolving source path %s: %w", source, err)
		}

		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, abs)
			}

			return nil, fmt.Errorf("checking source %s: %w", abs, err)
		}

		source = abs
	}

	exists, err := e.uploads.Exists(ctx, serverPath)
	if err != nil {
		return nil, fmt.Errorf("checking destination %s: %w", serverPath, err)
	}

	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: %s", ErrDestinationExists, serverPath)
	}

	content, size, err := e.openSource(ctx, source, remote)
	if err != nil {
		return nil, err
	}
	defer content.Close()

	info, err := e.uploads.Upload(ctx, serverPath, content, size)
	if err != nil {
		var apiErr *depot.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrUploadRejected, err)
		}

		return nil, fmt.Errorf("uploading %s: %w", serverPath, err)
	}

	e.logger.Info("upload complete",
		slog.String("server_path", serverPath),
		slog.Int64("size", info.Size),
	)

	return info, nil
}

// openSource opens the upload source as a byte stream. For local files the
// size is known; for remote sources it is the Content-Length, -1 when the
// origin doesn't report one.
func (e *Engine) openSource(ctx context.Context, source string, remote bool) (io.ReadCloser, int64, error) {
	if !remote {
		f, err := os.Open(source)
		if err != nil {
			return nil, 0, fmt.Errorf("opening source %s: %w", source, err)
		}

		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("stat source %s: %w", source, err)
		}

		return f, fi.Size(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request for remote source %s: %w", source, err)
	}

	resp, err := e.fetch.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching remote source %s: %w", source, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetching remote source %s: HTTP %d", source, resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

// DownloadFile downloads the artifact at serverPath to destPath, overwriting
// an existing file at that path. The parent directory must already exist —
// the engine never creates directories for downloads. With opts.Verify the
// just-written file's MD5 is compared against the server-reported checksum.
func (e *Engine) DownloadFile(ctx context.Context, serverPath, destPath string, opts DownloadOpts) (*DownloadResult, error) {
	e.logger.Debug("DownloadFile",
		slog.String("server_path", serverPath),
		slog.String("dest", destPath),
		slog.Bool("verify", opts.Verify),
	)

	if err := checkDestinationDir(destPath); err != nil {
		return nil, err
	}

	body, _, err := e.downloads.Download(ctx, serverPath)
	if err != nil {
		var apiErr *depot.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrDownloadRejected, err)
		}

		return nil, fmt.Errorf("downloading %s: %w", serverPath, err)
	}
	defer body.Close()

	size, err := writeStream(destPath, body)
	if err != nil {
		// The partially written file stays in place. Rolling it back here
		// would mask how far the stream got; callers clean up.
		return nil, err
	}

	result := &DownloadResult{Path: destPath, Size: size}

	if opts.Verify {
		if err := e.verifyDownload(ctx, serverPath, destPath, result); err != nil {
			return nil, err
		}
	}

	e.logger.Info("download complete",
		slog.String("server_path", serverPath),
		slog.String("dest", destPath),
		slog.Int64("size", size),
		slog.Bool("verified", result.Verified),
	)

	return result, nil
}

// DownloadFolder downloads a server-built archive of the folder at
// serverPath to destFile. archiveType defaults to "zip". The parent
// directory precondition is the same as DownloadFile's; archives offer no
// integrity verification because the server doesn't expose per-archive
// checksums.
func (e *Engine) DownloadFolder(ctx context.Context, serverPath, destFile, archiveType string) (*DownloadResult, error) {
	if archiveType == "" {
		archiveType = DefaultArchiveType
	}

	e.logger.Debug("DownloadFolder",
		slog.String("server_path", serverPath),
		slog.String("dest", destFile),
		slog.String("archive_type", archiveType),
	)

	if err := checkDestinationDir(destFile); err != nil {
		return nil, err
	}

	body, err := e.downloads.DownloadArchive(ctx, serverPath, archiveType)
	if err != nil {
		var apiErr *depot.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrDownloadRejected, err)
		}

		return nil, fmt.Errorf("downloading archive of %s: %w", serverPath, err)
	}
	defer body.Close()

	size, err := writeStream(destFile, body)
	if err != nil {
		return nil, err
	}

	e.logger.Info("folder download complete",
		slog.String("server_path", serverPath),
		slog.String("dest", destFile),
		slog.Int64("size", size),
	)

	return &DownloadResult{Path: destFile, Size: size}, nil
}

// verifyDownload compares the local MD5 of the downloaded file with the
// server-reported one. The file is left in place on mismatch — deleting it
// would silently mask partial data.
func (e *Engine) verifyDownload(ctx context.Context, serverPath, destPath string, result *DownloadResult) error {
	info, err := e.downloads.GetFileInfo(ctx, serverPath)
	if err != nil {
		return fmt.Errorf("fetching checksums for %s: %w", serverPath, err)
	}

	if info.Checksums.MD5 == "" {
		return fmt.Errorf("verifying %s: server reported no MD5 checksum", serverPath)
	}

	actual, err := e.hashFunc(destPath, AlgoMD5)
	if err != nil {
		return fmt.Errorf("hashing downloaded file %s: %w", destPath, err)
	}

	result.Checksum = actual

	if actual != info.Checksums.MD5 {
		return &IntegrityError{Path: destPath, Expected: info.Checksums.MD5, Actual: actual}
	}

	result.Verified = true

	return nil
}

// checkDestinationDir fails with ErrDestinationDirMissing when the parent
// directory of the local destination does not exist. Runs before any network
// call.
func checkDestinationDir(destPath string) error {
	parent := filepath.Dir(destPath)

	if _, err := os.Stat(parent); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDestinationDirMissing, parent)
		}

		return fmt.Errorf("checking destination directory %s: %w", parent, err)
	}

	return nil
}

// writeStream creates (or truncates) destPath and copies the stream into it.
// The destination file only comes into existence after the caller has
// already confirmed a successful response.
func writeStream(destPath string, body io.Reader) (int64, error) {
	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", destPath, err)
	}

	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil {
		return n, fmt.Errorf("%w: %s after %d bytes: %w", ErrWriteFailed, destPath, n, copyErr)
	}

	if closeErr != nil {
		return n, fmt.Errorf("%w: closing %s: %w", ErrWriteFailed, destPath, closeErr)
	}

	return n, nil
}
