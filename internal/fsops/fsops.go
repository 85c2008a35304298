// Package fsops wraps the directory-relative syscalls the walker and
// unpacker use to avoid re-resolving paths from the root on every call.
// Every handle returned here is owned by the caller: close it on every
// exit path, including errors from later operations.
package fsops

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
)

// Dir is an owned directory descriptor. It may be a readable directory
// handle (opened via OpenDir/OpenDirAt) or a path-only handle
// (OpenPathAt) that can only name children in *at calls.
type Dir struct {
	fd int
}

// FD returns the raw descriptor for use as the dirfd argument of another
// *at call. The Dir retains ownership.
func (d *Dir) FD() int { return d.fd }

// Close releases the descriptor. Safe to call once; a second call
// returns the close(2) error for an already-closed fd.
func (d *Dir) Close() error { return unix.Close(d.fd) }

// File is an owned regular-file descriptor.
type File struct {
	fd int
}

func (f *File) FD() int { return f.fd }
func (f *File) Close() error { return unix.Close(f.fd) }

// OpenDir opens path as a directory, read-only, close-on-exec.
func OpenDir(path string) (*Dir, error) {
	fd, err := unix.Open(path, unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errs.Of(errs.ErrOpen, fmt.Errorf("open %s: %w", path, err))
	}
	return &Dir{fd: fd}, nil
}

// OpenDirAt opens name relative to parent as a directory, read-only.
func OpenDirAt(parent *Dir, name string) (*Dir, error) {
	fd, err := unix.Openat(parent.fd, name, unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errs.Of(errs.ErrOpen, fmt.Errorf("openat %s: %w", name, err))
	}
	return &Dir{fd: fd}, nil
}

// OpenPathAt opens a path-only handle to name relative to parent: it can
// be used as a parent for further *at calls but not to list entries. It
// carries no read permission on the directory, which is what makes it
// safe to hold for directories the caller never needs to iterate.
func OpenPathAt(parent *Dir, name string) (*Dir, error) {
	fd, err := unix.Openat(parent.fd, name, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errs.Of(errs.ErrOpen, fmt.Errorf("openat(O_PATH) %s: %w", name, err))
	}
	return &Dir{fd: fd}, nil
}

// OpenPathAtCwd opens a path-only handle to name relative to the
// process's current working directory. Used to seed the parent stack
// without resolving an absolute path.
func OpenPathAtCwd(name string) (*Dir, error) {
	fd, err := unix.Openat(unix.AT_FDCWD, name, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errs.Of(errs.ErrOpen, fmt.Errorf("openat(O_PATH) %s: %w", name, err))
	}
	return &Dir{fd: fd}, nil
}

// OpenFileAt opens name relative to parent with the given flags,
// creating with mode 0666 when O_CREAT is set.
func OpenFileAt(parent *Dir, name string, flags int) (*File, error) {
	fd, err := unix.Openat(parent.fd, name, flags|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, errs.Of(errs.ErrOpen, fmt.Errorf("openat %s: %w", name, err))
	}
	return &File{fd: fd}, nil
}

// MkdirAt creates name relative to parent with mode 0755. It fails if
// name already exists; archives that legitimately list a directory
// twice are rejected rather than tolerated (see DESIGN.md).
func MkdirAt(parent *Dir, name string) error {
	if err := unix.Mkdirat(parent.fd, name, 0o755); err != nil {
		return errs.Of(errs.ErrMkdir, fmt.Errorf("mkdirat %s: %w", name, err))
	}
	return nil
}

// FileSize returns the byte length of an open file via a single fstat,
// never by reading the stream.
func FileSize(f *File) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return 0, errs.Of(errs.ErrStat, fmt.Errorf("fstat: %w", err))
	}
	return uint64(st.Size), nil
}

// PathSize stats path (not opened) for its byte length, used by the v0
// encoder before any archive data is written.
func PathSize(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errs.Of(errs.ErrStat, fmt.Errorf("stat %s: %w", path, err))
	}
	return uint64(fi.Size()), nil
}

// CloseRange closes descriptors [first,last] inclusive, used by the v0
// write-from-map path to keep the descriptor table from growing past
// the point where the kernel reallocates it.
func CloseRange(first, last uint) error {
	if err := unix.CloseRange(first, last, 0); err != nil {
		return errs.Of(errs.ErrClose, fmt.Errorf("close_range %d..%d: %w", first, last, err))
	}
	return nil
}
