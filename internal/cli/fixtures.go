package cli

import (
	"bufio"
	"os"
	"path"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rclone/archiver/internal/archivev0"
)

func newListDirsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list_dirs",
		Short: "Read a file list from stdin and print its unique ancestor directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(os.Stdin)
			if err != nil {
				return err
			}

			dirSet := make(map[string]struct{})
			for _, f := range lines {
				dir := path.Dir(f)
				for dir != "." && dir != "/" && dir != "" {
					dirSet[dir] = struct{}{}
					dir = path.Dir(dir)
				}
			}
			dirs := make([]string, 0, len(dirSet))
			for d := range dirSet {
				dirs = append(dirs, d)
			}
			sort.Strings(dirs)

			w := bufio.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			for _, d := range dirs {
				if _, err := w.WriteString(d + "\n"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// maliciousDirs and maliciousFiles are the fixture names used to validate sandbox
// containment: a v0 decoder that honours these verbatim as literal
// path components (rather than resolving ".." or a leading "/") never
// escapes the sandbox, since chroot confines resolution regardless of
// what the name claims to be.
var maliciousDirs = []string{"../rdir", "/adir"}
var maliciousFiles = []string{"../rfile", "/afile"}

func newMakeMaliciousCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "make_malicious <out>",
		Short: "Write a v0 archive whose names attempt path traversal, for sandbox-containment testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeMaliciousArchive(args[0])
		},
	}
}

func writeMaliciousArchive(out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return archivev0.EncodeRaw(f, maliciousDirs, maliciousFiles, map[string]uint32{
		maliciousFiles[0]: 0,
		maliciousFiles[1]: 0,
	})
}
