package numbering

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "F001-00000126", Format("F001", 126))
	require.Equal(t, "B002-00000001", Format("B002", 1))
	require.Equal(t, "GD01-00012345", Format("GD01", 12345))
}

func TestFormatWideCounter(t *testing.T) {
	// Counters past the padding width keep every digit.
	require.Equal(t, "F001-123456789", Format("F001", 123456789))
}
