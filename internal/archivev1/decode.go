package archivev1

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
	"github.com/rclone/archiver/internal/fsops"
	"github.com/rclone/archiver/internal/sandbox"
)

// Decode parses mapped as a v1 tagged-message stream and extracts it
// into outDir, synchronously: every FILE frame is written with a single
// write(2) before the next frame is read.
func Decode(mapped []byte, outDir string) error {
	if err := sandbox.Enter(outDir); err != nil {
		return err
	}

	root, err := fsops.OpenPathAtCwd(".")
	if err != nil {
		return err
	}

	stack := []*fsops.Dir{root}
	defer func() {
		for _, d := range stack {
			d.Close()
		}
	}()

	pos := 0
	for pos < len(mapped) {
		if len(stack) > MaxDepth {
			return errs.Of(errs.ErrDepthExceeded, fmt.Errorf("depth %d exceeds max %d", len(stack), MaxDepth))
		}
		tag := Tag(mapped[pos])
		pos++

		parent := stack[len(stack)-1]

		switch tag {
		case TagFile:
			name, n, err := readCString(mapped, pos)
			if err != nil {
				return err
			}
			pos = n
			if pos+4 > len(mapped) {
				return errs.Of(errs.ErrTruncated, fmt.Errorf("truncated length field for %s", name))
			}
			length := binary.LittleEndian.Uint32(mapped[pos : pos+4])
			pos += 4
			if pos+int(length) > len(mapped) {
				return errs.Of(errs.ErrTruncated, fmt.Errorf("file %s data truncated", name))
			}

			f, err := fsops.OpenFileAt(parent, name, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC)
			if err != nil {
				return err
			}
			_, werr := unix.Write(f.FD(), mapped[pos:pos+int(length)])
			f.Close()
			if werr != nil {
				return errs.Of(errs.ErrWrite, fmt.Errorf("write %s: %w", name, werr))
			}
			pos += int(length)

		case TagDir:
			name, n, err := readCString(mapped, pos)
			if err != nil {
				return err
			}
			pos = n

			if err := fsops.MkdirAt(parent, name); err != nil {
				return err
			}

			if pos < len(mapped) && Tag(mapped[pos]) == TagPop {
				// Empty-directory fast path: never open the child.
				pos++
				continue
			}

			child, err := fsops.OpenPathAt(parent, name)
			if err != nil {
				return err
			}
			stack = append(stack, child)

		case TagPop:
			if len(stack) <= 1 {
				return errs.Of(errs.ErrPopEmpty, fmt.Errorf("pop at top level"))
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.Close()

		default:
			return errs.Of(errs.ErrBadTag, fmt.Errorf("tag %d at offset %d", tag, pos-1))
		}
	}

	// Reaching end-of-archive with more than the root left on the stack
	// is tolerated: some encoders omit the top-level POP.
	return nil
}

func readCString(b []byte, start int) (name string, next int, err error) {
	for i := start; i < len(b); i++ {
		if b[i] == 0 {
			return string(b[start:i]), i + 1, nil
		}
	}
	return "", 0, errs.Of(errs.ErrTruncated, fmt.Errorf("unterminated name starting at %d", start))
}
