package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rclone/archiver/internal/archivev0"
	"github.com/rclone/archiver/internal/archivev1"
	"github.com/rclone/archiver/internal/archivev1ring"
	"github.com/rclone/archiver/internal/mmapfile"
)

func newUnpackV0Command() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack_v0 <in> <out-dir> [copy_file_range]",
		Short: "Sandbox into out-dir and extract a v0 archive",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := archivev0.WriteFromMap
			if len(args) == 3 {
				if args[2] != "copy_file_range" {
					return fmt.Errorf("unrecognised strategy token %q", args[2])
				}
				strategy = archivev0.ZeroCopy
			}

			m, err := mmapfile.Open(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			return archivev0.Decode(m.Bytes, m.FD, args[1], strategy)
		},
	}
}

func newUnpackV1Command() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack_v1 <in> <out-dir>",
		Short: "Synchronously extract a v1 archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mmapfile.Open(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			return archivev1.Decode(m.Bytes, args[1])
		},
	}
}

func newUnpackV1RingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack_v1_ring <in> <out-dir>",
		Short: "Asynchronously extract a v1 archive via io_uring batched submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mmapfile.Open(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			u, err := archivev1ring.New(archivev1ring.DefaultBatchSize)
			if err != nil {
				return err
			}
			defer u.Close()

			return u.Unpack(m.Bytes, args[1])
		},
	}
}
