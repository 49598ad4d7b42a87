package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargets_Enabled(t *testing.T) {
	assert.False(t, Targets{}.Enabled())
	assert.True(t, Targets{Heap: "heap.prof"}.Enabled())
}

func TestSession_WritesRequestedProfiles(t *testing.T) {
	dir := t.TempDir()
	targets := Targets{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	s, err := Start(targets)
	require.NoError(t, err)

	sum := 0
	for i := range 1_000_000 {
		sum += i
	}
	_ = sum

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	for _, path := range []string{targets.CPU, targets.Heap, targets.Trace} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Positive(t, info.Size(), path)
	}
}

func TestSession_HeapOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")

	s, err := Start(Targets{Heap: path})
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	assert.FileExists(t, path)
}

func TestStart_BadPath(t *testing.T) {
	_, err := Start(Targets{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	require.Error(t, err)
}

func TestSession_NilStop(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Stop())
}
