package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWipeByteArray(t *testing.T) {
	password := []byte("hunter2")
	view := password[:3]

	WipeByteArray(password)

	require.Equal(t, make([]byte, 7), password)
	require.Equal(t, []byte{0, 0, 0}, view)
	require.NotPanics(t, func() { WipeByteArray(nil) })
}
