package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfNilPassthrough(t *testing.T) {
	assert.Nil(t, Of(ErrOpen, nil))
}

func TestOfMatchesSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("enoent")
	err := Of(ErrOpen, cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMkdir)
}

func TestKindOf(t *testing.T) {
	for _, tc := range []struct {
		sentinel error
		want     Kind
	}{
		{ErrOpen, KindIO},
		{ErrBadTag, KindFormat},
		{ErrDepthExceeded, KindCapacity},
		{ErrMisaligned, KindAlignment},
	} {
		wrapped := Of(tc.sentinel, errors.New("boom"))
		kind, ok := KindOf(wrapped)
		require.True(t, ok)
		assert.Equal(t, tc.want, kind)
	}
}

func TestKindOfUnwrappedError(t *testing.T) {
	_, ok := KindOf(errors.New("not ours"))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "io", KindIO.String())
	assert.Equal(t, "format", KindFormat.String())
	assert.Equal(t, "capacity", KindCapacity.String())
	assert.Equal(t, "alignment", KindAlignment.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
