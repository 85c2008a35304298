package archivev1

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
	"github.com/rclone/archiver/internal/fsops"
	"github.com/rclone/archiver/internal/walk"
)

// Encode walks root and writes a v1 tagged-message archive to out. File
// contents bypass the buffered writer entirely: each FILE frame's header
// is flushed first, then the bytes move kernel-to-kernel via sendfile so
// large files are never copied through user space.
func Encode(out *os.File, root string) error {
	v := &encodeVisitor{bw: bufio.NewWriter(out), out: out}
	if err := walk.Walk(root, v); err != nil {
		return err
	}
	return v.bw.Flush()
}

type encodeVisitor struct {
	bw  *bufio.Writer
	out *os.File
}

func (v *encodeVisitor) OnFile(name string, f *fsops.File) error {
	size, err := fsops.FileSize(f)
	if err != nil {
		return err
	}
	if size > 1<<32-1 {
		return errs.Of(errs.ErrTooBig, fmt.Errorf("file %s is %d bytes", name, size))
	}

	if err := v.writeFrame(TagFile, name); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(size))
	if _, err := v.bw.Write(lenBuf[:]); err != nil {
		return err
	}
	if err := v.bw.Flush(); err != nil {
		return err
	}

	return sendfileAll(v.out.Fd(), uintptr(f.FD()), int64(size))
}

func (v *encodeVisitor) OnDir(name string) error {
	return v.writeFrame(TagDir, name)
}

func (v *encodeVisitor) LeaveDir() error {
	return v.bw.WriteByte(byte(TagPop))
}

func (v *encodeVisitor) writeFrame(tag Tag, name string) error {
	if err := v.bw.WriteByte(byte(tag)); err != nil {
		return err
	}
	if _, err := v.bw.WriteString(name); err != nil {
		return err
	}
	return v.bw.WriteByte(0)
}

// sendfileAll copies n bytes from src to dst via sendfile(2), looping on
// short transfers the way the spec's zero-copy strategy requires.
func sendfileAll(dst uintptr, src uintptr, n int64) error {
	var offset int64
	remaining := int(n)
	for remaining > 0 {
		written, err := unix.Sendfile(int(dst), int(src), &offset, remaining)
		if err != nil {
			return errs.Of(errs.ErrWrite, fmt.Errorf("sendfile: %w", err))
		}
		if written == 0 {
			return errs.Of(errs.ErrWrite, fmt.Errorf("sendfile: short transfer with %d remaining", remaining))
		}
		remaining -= written
	}
	return nil
}
