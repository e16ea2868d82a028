package selfprofile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileTypes(), types)

	types, err = ParseProfileTypes(" CPU, allocs ")
	require.NoError(t, err)
	assert.Equal(t, []ProfileType{ProfileCPU, ProfileAllocs}, types)

	_, err = ParseProfileTypes("cpu,threads")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.Profiles = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.Dir = ""
	assert.Error(t, cfg.Validate())
}

func TestCollector_StartStop(t *testing.T) {
	cfg := &Config{
		Enabled:  true,
		Dir:      t.TempDir(),
		Label:    "diff",
		Profiles: []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine},
	}
	c, err := NewCollector(cfg)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	assert.Error(t, c.Start())

	files, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(cfg.Dir, "diff.cpu.pb.gz"),
		filepath.Join(cfg.Dir, "diff.heap.pb.gz"),
		filepath.Join(cfg.Dir, "diff.goroutine.pb.gz"),
	}, files)

	// Every file is a readable pprof profile.
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = profile.Parse(bytes.NewReader(data))
		assert.NoError(t, err, f)
	}

	again, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, files, again)
}

func TestSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Snapshot(ProfileAllocs, &buf))
	prof, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, prof.SampleType)

	assert.Error(t, Snapshot(ProfileCPU, &buf))
	assert.Error(t, Snapshot("threads", &buf))
}

func TestRun(t *testing.T) {
	calls := 0
	files, err := Run(nil, func() error { calls++; return nil })
	require.NoError(t, err)
	assert.Nil(t, files)
	assert.Equal(t, 1, calls)

	cfg := &Config{Enabled: true, Dir: t.TempDir(), Profiles: []ProfileType{ProfileHeap}}
	boom := errors.New("boom")
	files, err = Run(cfg, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{filepath.Join(cfg.Dir, "run.heap.pb.gz")}, files)
}
