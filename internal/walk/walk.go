// Package walk implements the depth-first directory traversal the
// packer drives. It reuses directory descriptors across levels instead
// of re-resolving paths, the way the original C-style recursive lister
// does: every descent is an openat against the current directory's fd.
package walk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
	"github.com/rclone/archiver/internal/fsops"
)

// MaxDepth bounds traversal (and decode) nesting. Exceeding it aborts
// the whole walk with errs.ErrDepthExceeded.
const MaxDepth = 32

// Visitor receives traversal events in directory-iteration order, not
// sorted: the encoder downstream never reorders what the walker hands
// it.
type Visitor interface {
	OnFile(name string, f *fsops.File) error
	OnDir(name string) error
	LeaveDir() error
}

// Walk traverses root depth-first, calling v for every regular file and
// directory found. Only DT_REG and DT_DIR entries are visited; other
// kinds (symlinks, devices, sockets, fifos) are silently skipped, as are
// "." and "..".
func Walk(root string, v Visitor) error {
	dir, err := fsops.OpenDir(root)
	if err != nil {
		return err
	}
	defer dir.Close()
	return walkRec(dir, v, 0)
}

func walkRec(dir *fsops.Dir, v Visitor, depth int) error {
	if depth > MaxDepth {
		return errs.Of(errs.ErrDepthExceeded, fmt.Errorf("depth %d exceeds max %d", depth, MaxDepth))
	}

	reader := fsops.NewRawDirReader(dir)
	for {
		entry, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch entry.Type {
		case unix.DT_REG:
			f, err := fsops.OpenFileAt(dir, entry.Name, unix.O_RDONLY)
			if err != nil {
				return err
			}
			err = v.OnFile(entry.Name, f)
			f.Close()
			if err != nil {
				return err
			}
		case unix.DT_DIR:
			child, err := fsops.OpenDirAt(dir, entry.Name)
			if err != nil {
				return err
			}
			if err := v.OnDir(entry.Name); err != nil {
				child.Close()
				return err
			}
			if err := walkRec(child, v, depth+1); err != nil {
				child.Close()
				return err
			}
			child.Close()
			if err := v.LeaveDir(); err != nil {
				return err
			}
		default:
			// DT_UNKNOWN and anything else (symlinks, devices,
			// sockets) are outside the archive's data model.
		}
	}
}
