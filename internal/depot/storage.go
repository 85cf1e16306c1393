package depot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// encodePathSegments URL-encodes each segment of a slash-separated
// repository path. Characters like #, ?, %, and spaces are encoded
// per-segment so the result is safe for interpolation into API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// Checksums holds the server-computed content hashes of a stored artifact.
type Checksums struct {
	MD5    string
	SHA1   string
	SHA256 string
}

// FileInfo is the normalized metadata record for a stored artifact.
// Fetched on demand and never cached across calls.
type FileInfo struct {
	Repo         string
	Path         string
	Size         int64
	MimeType     string
	Checksums    Checksums
	DownloadURI  string
	Created      time.Time
	LastModified time.Time
}

// Child is one immediate child of a repository folder.
type Child struct {
	Name   string // base name, no leading separator
	Folder bool
}

// FolderInfo is the normalized listing of a repository folder's immediate
// children.
type FolderInfo struct {
	Repo     string
	Path     string
	Children []Child
}

// fileInfoResponse mirrors the storage API JSON exactly. Unexported —
// callers see FileInfo via toFileInfo() normalization.
type fileInfoResponse struct {
	Repo         string        `json:"repo"`
	Path         string        `json:"path"`
	Created      string        `json:"created"`
	LastModified string        `json:"lastModified"`
	Size         string        `json:"size"` // the API serializes size as a decimal string
	MimeType     string        `json:"mimeType"`
	DownloadURI  string        `json:"downloadUri"`
	Checksums    *checksumsRef `json:"checksums"`
}

type checksumsRef struct {
	MD5    string `json:"md5"`
	SHA1   string `json:"sha1"`
	SHA256 string `json:"sha256"`
}

type folderInfoResponse struct {
	Repo     string          `json:"repo"`
	Path     string          `json:"path"`
	Children []childResponse `json:"children"`
}

type childResponse struct {
	URI    string `json:"uri"`
	Folder bool   `json:"folder"`
}

// toFileInfo validates and normalizes a storage API file record. The
// checksums object is a required field for files; its absence is a decoding
// error, not a zero-valued record.
func (r *fileInfoResponse) toFileInfo(logger *slog.Logger) (*FileInfo, error) {
	if r.Checksums == nil {
		return nil, fmt.Errorf("%w: file info for %q is missing checksums", ErrInvalidResponse, r.Path)
	}

	info := &FileInfo{
		Repo:        r.Repo,
		Path:        r.Path,
		MimeType:    r.MimeType,
		DownloadURI: r.DownloadURI,
		Checksums: Checksums{
			MD5:    r.Checksums.MD5,
			SHA1:   r.Checksums.SHA1,
			SHA256: r.Checksums.SHA256,
		},
	}

	if r.Size != "" {
		size, err := strconv.ParseInt(r.Size, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: file info for %q has unparseable size %q", ErrInvalidResponse, r.Path, r.Size)
		}

		info.Size = size
	}

	info.Created = parseTimestamp(r.Created, "created", r.Path, logger)
	info.LastModified = parseTimestamp(r.LastModified, "lastModified", r.Path, logger)

	return info, nil
}

// toFolderInfo validates and normalizes a storage API folder record. Every
// child must carry a uri; a nameless child is a decoding error.
func (r *folderInfoResponse) toFolderInfo() (*FolderInfo, error) {
	info := &FolderInfo{
		Repo:     r.Repo,
		Path:     r.Path,
		Children: make([]Child, 0, len(r.Children)),
	}

	for i := range r.Children {
		name := strings.Trim(r.Children[i].URI, "/")
		if name == "" {
			return nil, fmt.Errorf("%w: folder info for %q has a child without a uri", ErrInvalidResponse, r.Path)
		}

		info.Children = append(info.Children, Child{
			Name:   name,
			Folder: r.Children[i].Folder,
		})
	}

	return info, nil
}

// parseTimestamp parses an RFC3339 timestamp, logging and returning the zero
// time when the value is absent or malformed. Metadata timestamps are
// informational; a bad one must not fail the whole record.
func parseTimestamp(raw, field, path string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp in storage record",
			slog.String("field", field),
			slog.String("path", path),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t
}

// GetFileInfo fetches the metadata record for a stored artifact, including
// its server-computed checksums.
func (c *Client) GetFileInfo(ctx context.Context, repoPath string) (*FileInfo, error) {
	c.logger.Debug("getting file info", slog.String("path", repoPath))

	resp, err := c.do(ctx, http.MethodGet, "/api/storage/"+encodePathSegments(repoPath))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fir fileInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&fir); err != nil {
		return nil, fmt.Errorf("depot: decoding file info response: %w", err)
	}

	return fir.toFileInfo(c.logger)
}

// GetFolderInfo fetches the immediate children of a repository folder.
func (c *Client) GetFolderInfo(ctx context.Context, repoPath string) (*FolderInfo, error) {
	c.logger.Debug("getting folder info", slog.String("path", repoPath))

	resp, err := c.do(ctx, http.MethodGet, "/api/storage/"+encodePathSegments(repoPath))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fir folderInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&fir); err != nil {
		return nil, fmt.Errorf("depot: decoding folder info response: %w", err)
	}

	return fir.toFolderInfo()
}

// Exists probes whether anything is stored at repoPath using a HEAD request
// against the content endpoint. Only 404 maps to false; any other failure is
// surfaced so callers don't mistake an outage for absence.
func (c *Client) Exists(ctx context.Context, repoPath string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, "/"+encodePathSegments(repoPath))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, err
	}
	defer resp.Body.Close()

	return true, nil
}
