package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rclone/archiver/internal/fsops"
)

type recordingVisitor struct {
	events []string
}

func (v *recordingVisitor) OnFile(name string, f *fsops.File) error {
	v.events = append(v.events, "file:"+name)
	return nil
}

func (v *recordingVisitor) OnDir(name string) error {
	v.events = append(v.events, "dir:"+name)
	return nil
}

func (v *recordingVisitor) LeaveDir() error {
	v.events = append(v.events, "leave")
	return nil
}

func TestWalkVisitsFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a/b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a/b/x.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("y"), 0o644))

	v := &recordingVisitor{}
	require.NoError(t, Walk(root, v))

	var dirs, files []string
	for _, e := range v.events {
		switch {
		case len(e) > 4 && e[:4] == "dir:":
			dirs = append(dirs, e[4:])
		case len(e) > 5 && e[:5] == "file:":
			files = append(files, e[5:])
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	require.Equal(t, []string{"a", "b"}, dirs)
	require.Equal(t, []string{"top.txt", "x.txt"}, files)
}

func TestWalkDepthExceeded(t *testing.T) {
	root := t.TempDir()
	dir := root
	for i := 0; i <= MaxDepth+1; i++ {
		dir = filepath.Join(dir, "d")
		require.NoError(t, os.Mkdir(dir, 0o755))
	}

	v := &recordingVisitor{}
	err := Walk(root, v)
	require.Error(t, err)
}
