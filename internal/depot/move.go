package depot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// EnsureResult reports what EnsureDir found. Only DirCreated and DirExists
// are benign outcomes; any other failure comes back as an error.
type EnsureResult int

const (
	DirCreated EnsureResult = iota
	DirExists
)

func (r EnsureResult) String() string {
	if r == DirCreated {
		return "created"
	}

	return "exists"
}

// Move relocates or renames the item at source to destination. The
// interpretation of a directory-shaped destination (move-into vs. rename) is
// the server's; callers that need guaranteed move-into semantics should
// EnsureDir the destination first. With dryRun the server validates the
// operation without relocating any data; the success/failure contract is
// identical.
func (c *Client) Move(ctx context.Context, source, destination string, dryRun bool) error {
	c.logger.Info("moving item",
		slog.String("source", source),
		slog.String("destination", destination),
		slog.Bool("dry_run", dryRun),
	)

	dry := "0"
	if dryRun {
		dry = "1"
	}

	// The destination travels as a query value, so it needs query encoding,
	// not path-segment encoding: "+" and "&" are legal raw in a path segment
	// but change meaning inside a query string.
	query := url.Values{
		"to":  []string{"/" + destination},
		"dry": []string{dry},
	}

	apiPath := "/api/move/" + encodePathSegments(source) + "?" + query.Encode()

	resp, err := c.do(ctx, http.MethodPost, apiPath)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The body is a messages array we don't surface; drain to reuse the
	// connection.
	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("depot: draining move response body: %w", copyErr)
	}

	return nil
}

// CreateFolder creates a folder at repoPath. The path must be
// directory-shaped (trailing separator); the server rejects a conflicting
// path with ErrConflict.
func (c *Client) CreateFolder(ctx context.Context, repoPath string) error {
	c.logger.Info("creating folder", slog.String("path", repoPath))

	resp, err := c.do(ctx, http.MethodPut, "/"+encodePathSegments(repoPath))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("depot: draining create folder response body: %w", copyErr)
	}

	return nil
}

// EnsureDir makes sure a folder exists at repoPath, distinguishing
// "created" from "already present". A conflict from the server means the
// folder (or a file at that path — the server cannot tell us apart here) is
// already present. All other failures are real errors.
func (c *Client) EnsureDir(ctx context.Context, repoPath string) (EnsureResult, error) {
	err := c.CreateFolder(ctx, repoPath)
	if err == nil {
		return DirCreated, nil
	}

	if errors.Is(err, ErrConflict) {
		c.logger.Debug("folder already present", slog.String("path", repoPath))

		return DirExists, nil
	}

	return 0, fmt.Errorf("depot: ensuring folder %s: %w", repoPath, err)
}

// Delete removes the item at repoPath. Folder deletion is recursive on the
// server side.
func (c *Client) Delete(ctx context.Context, repoPath string) error {
	c.logger.Info("deleting item", slog.String("path", repoPath))

	resp, err := c.do(ctx, http.MethodDelete, "/"+encodePathSegments(repoPath))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("depot: draining delete response body: %w", copyErr)
	}

	return nil
}
