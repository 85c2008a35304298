package archivev0

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{NumDirs: 3, NumFiles: 7, DirNamesSize: 40, FileNamesSize: 90}
	got := decodeHeader(h.encode())
	require.Equal(t, h, got)
}

func TestPadTo4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 17: 3}
	for offset, want := range cases {
		require.Equal(t, want, padTo4(offset), "offset %d", offset)
	}
}

// TestEncodeHeaderCounts exercises the S4-style header scenario: a
// small tree with nested directories and files is encoded, and the
// header's directory and file counts are checked. Decoding is not
// exercised here, since Decode enters the sandbox.
func TestEncodeHeaderCounts(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a/b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a/b/x.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("y"), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(src))
	defer os.Chdir(cwd)

	files := []string{"a/b/x.txt", "top.txt"}

	archiveDir := t.TempDir()
	archivePath := filepath.Join(archiveDir, "out.v0")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	require.NoError(t, Encode(out, files))
	require.NoError(t, out.Close())

	mapped, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	h := decodeHeader(mapped)
	require.Equal(t, uint32(2), h.NumDirs) // "a" and "a/b"
	require.Equal(t, uint32(2), h.NumFiles)
}

// TestAlignmentInvariant checks the size table always lands on a
// 4-byte boundary regardless of name-table lengths.
func TestAlignmentInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 10, 100} {
		pad := padTo4(headerSize + n)
		require.Zero(t, (headerSize+n+pad)%4)
	}
}
