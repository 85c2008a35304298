// Command archiver packs and unpacks directory trees into the v0 and
// v1 archive formats.
package main

import (
	"os"

	"github.com/rclone/archiver/internal/cli"
	"github.com/rclone/archiver/internal/logx"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		logx.Errorf("%v", err)
		os.Exit(1)
	}
}
