package fsops

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
)

// DirEntry is one raw getdents64 record: a name and its type, with no
// stat call behind it.
type DirEntry struct {
	Name string
	Type uint8 // unix.DT_REG, unix.DT_DIR, unix.DT_UNKNOWN, ...
}

// RawDirReader iterates the entries of a directory descriptor by
// reading getdents64 buffers directly, the way rustix's RawDir does for
// the packer's traversal: no per-entry syscall, no sorting, no libc
// readdir(3) buffering underneath.
type RawDirReader struct {
	dir *Dir
	buf []byte
	off int
	end int
}

// NewRawDirReader allocates a >=4KiB read buffer over dir's entries.
func NewRawDirReader(dir *Dir) *RawDirReader {
	return &RawDirReader{dir: dir, buf: make([]byte, 8192)}
}

// Next returns the next entry, or ok=false at end of directory or on
// error (err is nil at clean end of directory).
func (r *RawDirReader) Next() (entry DirEntry, ok bool, err error) {
	for {
		if r.off >= r.end {
			n, gerr := unix.Getdents(r.dir.fd, r.buf)
			if gerr != nil {
				return DirEntry{}, false, errs.Of(errs.ErrGetdents, fmt.Errorf("getdents: %w", gerr))
			}
			if n == 0 {
				return DirEntry{}, false, nil
			}
			r.off = 0
			r.end = n
		}
		rec := r.buf[r.off:r.end]
		if len(rec) < 19 {
			return DirEntry{}, false, errs.Of(errs.ErrGetdents, fmt.Errorf("getdents: truncated record"))
		}
		reclen := *(*uint16)(unsafe.Pointer(&rec[16]))
		if int(reclen) > len(rec) || reclen < 19 {
			return DirEntry{}, false, errs.Of(errs.ErrGetdents, fmt.Errorf("getdents: bad reclen %d", reclen))
		}
		dtype := rec[18]
		nameBytes := rec[19:reclen]
		if nul := indexByte(nameBytes, 0); nul >= 0 {
			nameBytes = nameBytes[:nul]
		}
		name := string(nameBytes)
		r.off += int(reclen)
		if name == "." || name == ".." {
			continue
		}
		return DirEntry{Name: name, Type: dtype}, true, nil
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
