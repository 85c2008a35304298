package archivev0

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rclone/archiver/internal/fsops"
)

// Encode writes a v0 archive for files (relative paths, sorted-or-not
// on entry) to w. files is sorted in place before the name table is
// built, since the v0 format requires sorted filenames regardless of
// input order. The directory set is derived as the union of every
// file's ancestors, excluding the empty path.
func Encode(w io.Writer, files []string) error {
	sort.Strings(files)

	dirSet := make(map[string]struct{})
	for _, f := range files {
		for _, anc := range ancestors(f) {
			dirSet[anc] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	sizes := make([]uint32, len(files))
	for i, f := range files {
		sz, err := fsops.PathSize(f)
		if err != nil {
			return err
		}
		sizes[i] = uint32(sz)
	}

	dirsBytes := joinNUL(dirs)
	filesBytes := joinNUL(files)

	h := Header{
		NumDirs:       uint32(len(dirs)),
		NumFiles:      uint32(len(files)),
		DirNamesSize:  uint32(len(dirsBytes)),
		FileNamesSize: uint32(len(filesBytes)),
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(h.encode()); err != nil {
		return err
	}
	if _, err := bw.Write(dirsBytes); err != nil {
		return err
	}
	if _, err := bw.Write(filesBytes); err != nil {
		return err
	}

	pad := padTo4(headerSize + len(dirsBytes) + len(filesBytes))
	if _, err := bw.Write(make([]byte, pad)); err != nil {
		return err
	}

	sizeBuf := make([]byte, 4*len(sizes))
	for i, sz := range sizes {
		binary.LittleEndian.PutUint32(sizeBuf[i*4:i*4+4], sz)
	}
	if _, err := bw.Write(sizeBuf); err != nil {
		return err
	}

	for _, f := range files {
		if err := copyFile(bw, f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeRaw writes a v0 archive from explicit dir and file name lists
// with no filesystem backing, used by fixture generators (e.g.
// make_malicious) that need to embed names a real directory tree could
// never contain. sizes gives each file's declared byte length; files
// with no entry are written as zero-length.
func EncodeRaw(w io.Writer, dirs, files []string, sizes map[string]uint32) error {
	dirsBytes := joinNUL(dirs)
	filesBytes := joinNUL(files)

	h := Header{
		NumDirs:       uint32(len(dirs)),
		NumFiles:      uint32(len(files)),
		DirNamesSize:  uint32(len(dirsBytes)),
		FileNamesSize: uint32(len(filesBytes)),
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(h.encode()); err != nil {
		return err
	}
	if _, err := bw.Write(dirsBytes); err != nil {
		return err
	}
	if _, err := bw.Write(filesBytes); err != nil {
		return err
	}

	pad := padTo4(headerSize + len(dirsBytes) + len(filesBytes))
	if _, err := bw.Write(make([]byte, pad)); err != nil {
		return err
	}

	sizeBuf := make([]byte, 4*len(files))
	for i, f := range files {
		binary.LittleEndian.PutUint32(sizeBuf[i*4:i*4+4], sizes[f])
	}
	if _, err := bw.Write(sizeBuf); err != nil {
		return err
	}
	return bw.Flush()
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// ancestors returns p's parent directories, nearest first, skipping the
// empty path the way path.Dir("a") == "." is excluded.
func ancestors(p string) []string {
	var out []string
	dir := path.Dir(p)
	for dir != "." && dir != "/" && dir != "" {
		out = append(out, dir)
		dir = path.Dir(dir)
	}
	return out
}

func joinNUL(xs []string) []byte {
	var sb strings.Builder
	for _, x := range xs {
		sb.WriteString(x)
		sb.WriteByte(0)
	}
	return []byte(sb.String())
}
