package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/depot-cli/depot-go/internal/depot"
	"github.com/depot-cli/depot-go/internal/repopath"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <repo-path>",
		Short: "List a repository folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runLs,
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <repo-path>",
		Short: "Display artifact metadata and checksums",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <repo-path>",
		Short: "Delete an artifact or folder",
		Long: `Delete an artifact or folder from the repository.

Folder deletion is recursive on the server side — all contents are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: runRm,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <repo-path>",
		Short: "Create a repository folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	client := newDepotClient(buildLogger())

	info, err := client.GetFolderInfo(cmd.Context(), repopath.Clean(args[0]))
	if err != nil {
		return err
	}

	if flagJSON {
		return printChildrenJSON(info.Children)
	}

	printChildrenTable(info.Children)

	return nil
}

// lsJSONChild is the JSON output schema for a single entry in ls output.
type lsJSONChild struct {
	Name   string `json:"name"`
	Folder bool   `json:"folder"`
}

func printChildrenJSON(children []depot.Child) error {
	out := make([]lsJSONChild, 0, len(children))
	for i := range children {
		out = append(out, lsJSONChild{Name: children[i].Name, Folder: children[i].Folder})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printChildrenTable(children []depot.Child) {
	// Sort: folders first, then alphabetical.
	sort.Slice(children, func(i, j int) bool {
		if children[i].Folder != children[j].Folder {
			return children[i].Folder
		}

		return children[i].Name < children[j].Name
	})

	rows := make([][]string, 0, len(children))

	for i := range children {
		name := children[i].Name
		kind := "file"

		if children[i].Folder {
			name += "/"
			kind = "folder"
		}

		rows = append(rows, []string{name, kind})
	}

	renderTable(os.Stdout, []string{"NAME", "TYPE"}, rows)
}

func runStat(cmd *cobra.Command, args []string) error {
	client := newDepotClient(buildLogger())

	info, err := client.GetFileInfo(cmd.Context(), repopath.Clean(args[0]))
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(info)
	}

	renderTable(os.Stdout, []string{"FIELD", "VALUE"}, [][]string{
		{"repo", info.Repo},
		{"path", info.Path},
		{"size", formatSize(info.Size)},
		{"mime type", info.MimeType},
		{"md5", info.Checksums.MD5},
		{"sha1", info.Checksums.SHA1},
		{"sha256", info.Checksums.SHA256},
		{"created", formatTime(info.Created)},
		{"modified", formatTime(info.LastModified)},
	})

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	client := newDepotClient(buildLogger())

	path := repopath.Clean(args[0])
	if err := client.Delete(cmd.Context(), path); err != nil {
		return err
	}

	statusf("Deleted %s\n", path)

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	client := newDepotClient(buildLogger())

	dir := repopath.AsDirectory(repopath.Clean(args[0]))

	res, err := client.EnsureDir(cmd.Context(), dir)
	if err != nil {
		return err
	}

	statusf("Folder %s: %s\n", dir, res)

	return nil
}
