package cli

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/rclone/archiver/internal/archivev0"
	"github.com/rclone/archiver/internal/archivev1"
)

func newPackV0Command() *cobra.Command {
	return &cobra.Command{
		Use:   "pack_v0 <out>",
		Short: "Read a newline-separated file list from stdin and write a v0 archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readLines(os.Stdin)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer out.Close()

			return archivev0.Encode(out, files)
		},
	}
}

func newPackV1Command() *cobra.Command {
	return &cobra.Command{
		Use:   "pack_v1 <in-dir> <out>",
		Short: "Walk in-dir and write a v1 tagged-message archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer out.Close()

			return archivev1.Encode(out, args[0])
		},
	}
}

func readLines(f *os.File) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
