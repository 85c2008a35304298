// Package sandbox confines the unpacker to its output directory before
// any archive-driven filesystem mutation happens. It trades basename
// validation for a namespace-level guarantee: even a ".." in an archive
// entry can at worst resolve to the root of the sandbox, never to the
// real filesystem above output_dir.
package sandbox

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Enter maps the caller's uid/gid to root inside a fresh user
// namespace, then chroots into dir and changes the working directory
// to its new root. It is one-way for the lifetime of the process: there
// is no corresponding Leave.
func Enter(dir string) error {
	uid := unix.Geteuid()
	gid := unix.Getegid()

	if err := unix.Unshare(unix.CLONE_NEWUSER); err != nil {
		return fmt.Errorf("unshare(CLONE_NEWUSER): %w", err)
	}

	// The kernel requires this exact sequence for an unprivileged
	// process to map its gid: deny setgroups before writing gid_map,
	// or the write is refused with EPERM.
	if err := writeFile("/proc/self/uid_map", fmt.Sprintf("0 %d 1", uid)); err != nil {
		return fmt.Errorf("uid_map: %w", err)
	}
	if err := writeFile("/proc/self/setgroups", "deny"); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := writeFile("/proc/self/gid_map", fmt.Sprintf("0 %d 1", gid)); err != nil {
		return fmt.Errorf("gid_map: %w", err)
	}

	if err := unix.Chroot(dir); err != nil {
		return fmt.Errorf("chroot %s: %w", dir, err)
	}
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	return nil
}

func writeFile(path, contents string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(contents)
	return err
}
