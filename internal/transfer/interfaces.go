package transfer

import (
	"context"
	"io"

	"github.com/depot-cli/depot-go/internal/depot"
)

// Uploader is the remote surface the upload path needs. Satisfied by
// *depot.Client.
type Uploader interface {
	Exists(ctx context.Context, repoPath string) (bool, error)
	Upload(ctx context.Context, repoPath string, content io.Reader, size int64) (*depot.UploadInfo, error)
}

// Downloader is the remote surface the download path needs. Satisfied by
// *depot.Client. Download and DownloadArchive hand over the body stream only
// after a success status is confirmed.
type Downloader interface {
	GetFileInfo(ctx context.Context, repoPath string) (*depot.FileInfo, error)
	Download(ctx context.Context, repoPath string) (io.ReadCloser, int64, error)
	DownloadArchive(ctx context.Context, repoPath, archiveType string) (io.ReadCloser, error)
}
