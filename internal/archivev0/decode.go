package archivev0

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/errs"
	"github.com/rclone/archiver/internal/fsops"
	"github.com/rclone/archiver/internal/logx"
	"github.com/rclone/archiver/internal/sandbox"
)

// closeRangeEvery is how often the write-from-map path range-closes
// descriptors >= 4, to keep the table from growing past the point
// where the kernel reallocates it (252 files, just under the 256
// rlimit most systems default to).
const closeRangeEvery = 252

// CopyStrategy selects how file bytes move from the input archive to
// the freshly created output files.
type CopyStrategy int

const (
	// WriteFromMap slices the memory-mapped archive and issues one
	// write(2) per file.
	WriteFromMap CopyStrategy = iota
	// ZeroCopy uses copy_file_range(2) from the archive's underlying
	// fd directly into each output file, looping on short transfers.
	ZeroCopy
)

// Decode parses mapped as a v0 archive, sandboxes into outDir, and
// extracts every directory and file. archiveFD is the open archive
// file descriptor, used only by the ZeroCopy strategy.
func Decode(mapped []byte, archiveFD int, outDir string, strategy CopyStrategy) error {
	regions, err := parseRegions(mapped)
	if err != nil {
		return err
	}

	dirNames, err := splitNUL(mapped[regions.DirNamesOff:regions.DirNamesOff+int(regions.DirNamesSize)], int(regions.NumDirs))
	if err != nil {
		return err
	}
	fileNames, err := splitNUL(mapped[regions.FileNamesOff:regions.FileNamesOff+int(regions.FileNamesSize)], int(regions.NumFiles))
	if err != nil {
		return err
	}

	sizes := make([]uint32, regions.NumFiles)
	for i := range sizes {
		off := regions.SizesOff + i*4
		if off+4 > len(mapped) {
			return errs.Of(errs.ErrRegionBounds, fmt.Errorf("size table entry %d out of bounds", i))
		}
		sizes[i] = binary.LittleEndian.Uint32(mapped[off : off+4])
	}

	if err := sandbox.Enter(outDir); err != nil {
		return err
	}

	root, err := fsops.OpenPathAtCwd(".")
	if err != nil {
		return err
	}
	defer root.Close()

	for _, d := range dirNames {
		if err := fsops.MkdirAt(root, d); err != nil {
			return err
		}
	}

	cursor := regions.DataOff
	opened := 0
	for i, name := range fileNames {
		size := int(sizes[i])
		f, err := fsops.OpenFileAt(root, name, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC)
		if err != nil {
			return err
		}

		switch strategy {
		case WriteFromMap:
			if cursor+size > len(mapped) {
				f.Close()
				return errs.Of(errs.ErrRegionBounds, fmt.Errorf("file %s data out of bounds", name))
			}
			if _, err := unix.Write(f.FD(), mapped[cursor:cursor+size]); err != nil {
				f.Close()
				return errs.Of(errs.ErrWrite, fmt.Errorf("write %s: %w", name, err))
			}
		case ZeroCopy:
			if err := copyFileRangeAll(archiveFD, f.FD(), int64(cursor), size); err != nil {
				f.Close()
				return err
			}
		}
		f.Close()
		cursor += size

		opened++
		if strategy == WriteFromMap && opened%closeRangeEvery == 0 {
			if err := fsops.CloseRange(4, uint(opened+3)); err != nil {
				logx.Debugf("close_range skipped: %v", err)
			}
		}
	}
	return nil
}

func copyFileRangeAll(srcFD, dstFD int, offset int64, size int) error {
	remaining := size
	off := offset
	for remaining > 0 {
		n, err := unix.CopyFileRange(srcFD, &off, dstFD, nil, remaining, 0)
		if err != nil {
			return errs.Of(errs.ErrWrite, fmt.Errorf("copy_file_range: %w", err))
		}
		if n == 0 {
			return errs.Of(errs.ErrWrite, fmt.Errorf("copy_file_range: short transfer with %d remaining", remaining))
		}
		remaining -= n
	}
	return nil
}

func parseRegions(mapped []byte) (Regions, error) {
	if len(mapped) < headerSize {
		return Regions{}, errs.Of(errs.ErrTruncated, fmt.Errorf("archive shorter than header"))
	}
	h := decodeHeader(mapped)

	dirNamesOff := headerSize
	fileNamesOff := dirNamesOff + int(h.DirNamesSize)
	pad := padTo4(headerSize + int(h.DirNamesSize) + int(h.FileNamesSize))
	sizesOff := fileNamesOff + int(h.FileNamesSize) + pad
	if sizesOff%4 != 0 {
		return Regions{}, errs.Of(errs.ErrMisaligned, fmt.Errorf("size table at unaligned offset %d", sizesOff))
	}
	sizesLen := int(h.NumFiles) * 4
	dataOff := sizesOff + sizesLen

	if dataOff > len(mapped) || fileNamesOff+int(h.FileNamesSize) > len(mapped) {
		return Regions{}, errs.Of(errs.ErrRegionBounds, fmt.Errorf("header describes regions past end of archive"))
	}

	return Regions{
		Header:       h,
		DirNamesOff:  dirNamesOff,
		FileNamesOff: fileNamesOff,
		PadLen:       pad,
		SizesOff:     sizesOff,
		SizesLen:     sizesLen,
		DataOff:      dataOff,
	}, nil
}

func splitNUL(b []byte, count int) ([]string, error) {
	out := make([]string, 0, count)
	for len(b) > 0 {
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			return nil, errs.Of(errs.ErrFormat, fmt.Errorf("unterminated name"))
		}
		out = append(out, string(b[:i]))
		b = b[i+1:]
	}
	if len(out) != count {
		return nil, errs.Of(errs.ErrFormat, fmt.Errorf("expected %d names, got %d", count, len(out)))
	}
	return out, nil
}
