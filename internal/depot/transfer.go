package depot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// UploadInfo is the server's deploy-confirmation record for an uploaded
// artifact. The exact shape is server-defined; fields the server omits stay
// zero-valued.
type UploadInfo struct {
	Repo        string
	Path        string
	Size        int64
	DownloadURI string
	Checksums   Checksums
}

type uploadResponse struct {
	Repo        string        `json:"repo"`
	Path        string        `json:"path"`
	Size        string        `json:"size"`
	DownloadURI string        `json:"downloadUri"`
	Checksums   *checksumsRef `json:"checksums"`
}

func (r *uploadResponse) toUploadInfo() *UploadInfo {
	info := &UploadInfo{
		Repo:        r.Repo,
		Path:        r.Path,
		DownloadURI: r.DownloadURI,
	}

	if size, err := strconv.ParseInt(r.Size, 10, 64); err == nil {
		info.Size = size
	}

	if r.Checksums != nil {
		info.Checksums = Checksums{
			MD5:    r.Checksums.MD5,
			SHA1:   r.Checksums.SHA1,
			SHA256: r.Checksums.SHA256,
		}
	}

	return info
}

// Upload streams content to repoPath with a single PUT. size -1 means
// unknown (chunked transfer encoding). The request is never retried — the
// reader cannot be replayed.
func (c *Client) Upload(ctx context.Context, repoPath string, content io.Reader, size int64) (*UploadInfo, error) {
	c.logger.Info("uploading artifact",
		slog.String("path", repoPath),
		slog.Int64("size", size),
	)

	resp, err := c.doStream(ctx, http.MethodPut, "/"+encodePathSegments(repoPath), "application/octet-stream", content, size)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ur uploadResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&ur); decErr != nil {
		return nil, fmt.Errorf("depot: decoding upload response: %w", decErr)
	}

	info := ur.toUploadInfo()

	c.logger.Debug("upload accepted",
		slog.String("path", repoPath),
		slog.Int("status", resp.StatusCode),
	)

	return info, nil
}

// Download opens a content stream for the artifact at repoPath. The stream
// is only returned after a success status is confirmed; the caller owns it
// and must close it. The second return value is the content length, or -1
// when the server doesn't report one.
func (c *Client) Download(ctx context.Context, repoPath string) (io.ReadCloser, int64, error) {
	c.logger.Info("downloading artifact", slog.String("path", repoPath))

	resp, err := c.do(ctx, http.MethodGet, "/"+encodePathSegments(repoPath))
	if err != nil {
		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

// DownloadArchive opens a stream of a server-built archive of the folder at
// repoPath. archiveType is the archive format the server should produce
// (for example "zip" or "tar.gz"). The caller owns the returned stream.
func (c *Client) DownloadArchive(ctx context.Context, repoPath, archiveType string) (io.ReadCloser, error) {
	c.logger.Info("downloading folder archive",
		slog.String("path", repoPath),
		slog.String("archive_type", archiveType),
	)

	apiPath := "/api/archive/download/" + encodePathSegments(repoPath) +
		"?archiveType=" + url.QueryEscape(archiveType)

	resp, err := c.do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}
