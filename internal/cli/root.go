// Package cli wires the subcommand surface onto cobra, the way rclone's
// own command tree is built: one *cobra.Command per verb, registered
// onto a bare root, each a one-line dispatch into the internal codec
// packages with no shared state between invocations.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/rclone/archiver/internal/logx"
)

// NewRootCommand builds the top-level command, ready for Execute.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "archiver",
		Short:         "Pack and unpack directory trees into v0/v1 archives",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logx.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newPackV0Command(),
		newPackV1Command(),
		newUnpackV0Command(),
		newUnpackV1Command(),
		newUnpackV1RingCommand(),
		newListDirsCommand(),
		newMakeMaliciousCommand(),
	)
	return root
}
