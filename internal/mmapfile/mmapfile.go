// Package mmapfile opens and memory-maps an archive file for reading,
// shared by every decoder: v0's region scan, v1's synchronous tag loop,
// and the async ring unpacker all walk the same read-only mapping.
package mmapfile

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Mapped is an open, memory-mapped file. Bytes is the mapping itself;
// FD is the underlying descriptor, needed by callers that also issue
// copy_file_range/sendfile against the same file.
type Mapped struct {
	Bytes mmap.MMap
	FD    int
	file  *os.File
}

// Open maps path read-only, shared.
func Open(path string) (*Mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Mapped{Bytes: m, FD: int(f.Fd()), file: f}, nil
}

// Close unmaps and closes the underlying file.
func (m *Mapped) Close() error {
	if err := m.Bytes.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
