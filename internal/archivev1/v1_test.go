package archivev1

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclone/archiver/internal/errs"
)

// fileFrame builds a FILE frame's bytes by hand, mirroring the wire
// format the encoder produces: tag, NUL-terminated name, u32 length,
// contents.
func fileFrame(name string, contents []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(TagFile))
	buf.WriteString(name)
	buf.WriteByte(0)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(contents)))
	buf.Write(lenBuf[:])
	buf.Write(contents)
	return buf.Bytes()
}

func dirFrame(name string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(TagDir))
	buf.WriteString(name)
	buf.WriteByte(0)
	return buf.Bytes()
}

func concatFrames(frames ...[]byte) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(f)
	}
	return buf.Bytes()
}

// encodeTree runs the real encoder over root and returns the archive
// bytes it wrote.
func encodeTree(t *testing.T, root string) []byte {
	t.Helper()
	outPath := filepath.Join(t.TempDir(), "archive.v1")
	out, err := os.Create(outPath)
	require.NoError(t, err)
	require.NoError(t, Encode(out, root))
	require.NoError(t, out.Close())

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	return got
}

// TestS1OneFile matches the spec's S1 scenario: root/hello.txt = "hi",
// encoded by the real walker and writer rather than hand-assembled.
func TestS1OneFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))

	want := fileFrame("hello.txt", []byte("hi"))
	assert.Equal(t, want, encodeTree(t, root))
}

// TestS2EmptySubtree matches the spec's S2 scenario: root/a/ (empty).
func TestS2EmptySubtree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0o755))

	want := concatFrames(dirFrame("a"), []byte{byte(TagPop)})
	assert.Equal(t, want, encodeTree(t, root))
}

// TestS3Nested matches the spec's S3 scenario:
// root/a/b.txt = "x", root/c.txt = "yy". The walker visits root's two
// top-level entries in raw directory order, which getdents64 does not
// guarantee to be creation or lexical order, so either ordering of the
// "a" subtree and "c.txt" is accepted so long as the bytes are exactly
// one of the two valid depth-first encodings.
func TestS3Nested(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), []byte("yy"), 0o644))

	got := encodeTree(t, root)

	aSubtree := concatFrames(dirFrame("a"), fileFrame("b.txt", []byte("x")), []byte{byte(TagPop)})
	cFrame := fileFrame("c.txt", []byte("yy"))
	aFirst := concatFrames(aSubtree, cFrame)
	cFirst := concatFrames(cFrame, aSubtree)

	if !bytes.Equal(got, aFirst) && !bytes.Equal(got, cFirst) {
		t.Fatalf("archive bytes matched neither valid ordering:\n got:    %x\n aFirst: %x\n cFirst: %x", got, aFirst, cFirst)
	}
}

// TestDecodePopOnEmptyStack checks the fatal-underflow case: a POP at
// the top level with no open directory must error.
func TestDecodePopOnEmptyStack(t *testing.T) {
	mapped := []byte{byte(TagPop)}
	err := Decode(mapped, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPopEmpty)
}

func TestDecodeBadTag(t *testing.T) {
	mapped := []byte{0x7f}
	err := Decode(mapped, t.TempDir())
	require.Error(t, err)
}

func TestReadCStringUnterminated(t *testing.T) {
	_, _, err := readCString([]byte("no-nul"), 0)
	require.Error(t, err)
}
