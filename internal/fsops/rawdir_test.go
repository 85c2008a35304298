package fsops

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRawDirReaderListsEntriesSkippingDotAndDotDot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	dir, err := OpenDir(root)
	require.NoError(t, err)
	defer dir.Close()

	reader := NewRawDirReader(dir)
	var names []string
	for {
		entry, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NotEqual(t, ".", entry.Name)
		require.NotEqual(t, "..", entry.Name)
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"a.txt", "sub"}, names)
}

func TestRawDirReaderReportsEntryTypes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	dir, err := OpenDir(root)
	require.NoError(t, err)
	defer dir.Close()

	reader := NewRawDirReader(dir)
	types := map[string]uint8{}
	for {
		entry, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		types[entry.Name] = entry.Type
	}
	require.Equal(t, uint8(unix.DT_DIR), types["sub"])
	require.Equal(t, uint8(unix.DT_REG), types["a.txt"])
}
