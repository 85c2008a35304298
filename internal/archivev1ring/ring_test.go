package archivev1ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCString(t *testing.T) {
	name, next, err := readCString([]byte("hello\x00rest"), 0)
	require.NoError(t, err)
	require.Equal(t, "hello", name)
	require.Equal(t, 6, next)
}

func TestReadCStringUnterminated(t *testing.T) {
	_, _, err := readCString([]byte("nonul"), 0)
	require.Error(t, err)
}

// TestUnpackRequiresKernelSupport documents that Unpacker.Unpack exercises
// real io_uring syscalls and sandbox namespaces; the S6 short-write
// scenario needs a live kernel and is not covered by any test in this
// repository.
func TestUnpackRequiresKernelSupport(t *testing.T) {
	t.Skip("io_uring submission and user-namespace sandboxing require a live kernel; S6 is not exercised by unit tests")
}
