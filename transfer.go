package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/depot-cli/depot-go/internal/repopath"
	"github.com/depot-cli/depot-go/internal/transfer"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path-or-url> <repo-path>",
		Short: "Upload a file or a remote URL's content",
		Long: `Upload a local file to the repository, or have the client fetch an
http(s) URL and stream its content to the repository.

By default an occupied destination is refused; use --force to overwrite.`,
		Args: cobra.ExactArgs(2),
		RunE: runPut,
	}

	cmd.Flags().BoolP("force", "f", false, "overwrite an existing artifact at the destination")

	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <repo-path> [local-path]",
		Short: "Download an artifact",
		Long: `Download an artifact to a local file. The destination defaults to the
artifact's base name in the current directory; an existing file at the
destination is overwritten. The destination's parent directory must exist.

With --verify, the download's MD5 is checked against the server-reported
checksum. On mismatch the file is kept for inspection and the command fails.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runGet,
	}

	cmd.Flags().Bool("verify", false, "verify the download against the server checksum")

	return cmd
}

func newGetDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-dir <repo-path> <archive-file>",
		Short: "Download a folder as a server-built archive",
		Args:  cobra.ExactArgs(2),
		RunE:  runGetDir,
	}

	cmd.Flags().String("archive-type", transfer.DefaultArchiveType, "archive format the server should produce")

	return cmd
}

// newTransferEngine wires the transfer engine to the configured server.
func newTransferEngine() *transfer.Engine {
	logger := buildLogger()
	client := newDepotClient(logger)

	// Remote URL sources are fetched with the same timeout as API calls.
	fetch := &http.Client{Timeout: resolvedCfg.Timeout}

	return transfer.NewEngineWithHTTP(client, client, fetch, logger)
}

func runPut(cmd *cobra.Command, args []string) error {
	source := args[0]
	serverPath := repopath.Clean(args[1])

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	engine := newTransferEngine()

	info, err := engine.UploadFile(cmd.Context(), serverPath, source, transfer.UploadOpts{Force: force})
	if err != nil {
		if errors.Is(err, transfer.ErrDestinationExists) {
			return fmt.Errorf("%s already exists on the server (use --force to overwrite)", serverPath)
		}

		return err
	}

	statusf("Uploaded %s (%s)\n", serverPath, formatSize(info.Size))

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	serverPath := repopath.Clean(args[0])

	localPath := repopath.BaseName(serverPath)
	if len(args) > 1 {
		localPath = args[1]
	}

	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}

	// Config may force verification on for every download.
	verify = verify || resolvedCfg.VerifyDownloads

	engine := newTransferEngine()

	result, err := engine.DownloadFile(cmd.Context(), serverPath, localPath, transfer.DownloadOpts{Verify: verify})
	if err != nil {
		if errors.Is(err, transfer.ErrIntegrityMismatch) {
			return fmt.Errorf("%w (the file was kept at %s for inspection)", err, localPath)
		}

		return err
	}

	statusf("Downloaded %s (%s)\n", result.Path, formatSize(result.Size))

	if result.Verified {
		statusf("Checksum verified (md5 %s)\n", result.Checksum)
	}

	return nil
}

func runGetDir(cmd *cobra.Command, args []string) error {
	serverPath := repopath.AsDirectory(repopath.Clean(args[0]))
	destFile := args[1]

	archiveType, err := cmd.Flags().GetString("archive-type")
	if err != nil {
		return err
	}

	engine := newTransferEngine()

	result, err := engine.DownloadFolder(cmd.Context(), serverPath, destFile, archiveType)
	if err != nil {
		return err
	}

	statusf("Downloaded archive %s (%s)\n", filepath.Base(result.Path), formatSize(result.Size))

	return nil
}
