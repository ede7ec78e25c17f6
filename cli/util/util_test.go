package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1536:        "1.5 KB",
		5 * 1 << 20: "5.0 MB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBytes(in), "FormatBytes(%d)", in)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 500 * time.Microsecond, want: "500µs"},
		{in: 42 * time.Millisecond, want: "42ms"},
		{in: 1500 * time.Millisecond, want: "1.50s"},
		{in: 90*time.Second + 400*time.Millisecond, want: "1m30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestJoinOrDash(t *testing.T) {
	assert.Equal(t, "-", JoinOrDash(nil))
	assert.Equal(t, "es, cjs", JoinOrDash([]string{"es", "cjs"}))
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
}
