package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/watch"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "counter.toml", `
output = "stderr"
track = ["variable", "object"]
history = true
log_level = "debug"
color = false
watch = ["state"]
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "counter.star"), c.Script)
	assert.Equal(t, "stderr", c.Output)
	assert.True(t, c.History)
	assert.Equal(t, "debug", c.LogLevel)
	require.NotNil(t, c.Color)
	assert.False(t, *c.Color)
	assert.Equal(t, []string{"state"}, c.Watch)

	mode, err := c.TrackMode()
	require.NoError(t, err)
	assert.Equal(t, watch.TrackValue|watch.TrackObject, mode)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", "script: other.star\ntrack: [object]\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "other.star"), c.Script)
	mode, err := c.TrackMode()
	require.NoError(t, err)
	assert.Equal(t, watch.TrackObject, mode)
	assert.Nil(t, c.Color)
}

func TestLoadRejectsBadTrack(t *testing.T) {
	path := writeFile(t, "bad.toml", `track = ["sometimes"]`)
	_, err := Load(path)
	assert.ErrorIs(t, err, watch.ErrInvalidTrack)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultTrack(t *testing.T) {
	mode, err := (&File{}).TrackMode()
	require.NoError(t, err)
	assert.Equal(t, watch.DefaultTrack, mode)
}

func TestMerge(t *testing.T) {
	yes := true
	c := &File{Output: "stdout", Track: []string{"variable"}, Watch: []string{"a"}}
	c.Merge(&File{Track: []string{"object"}, Color: &yes, Watch: []string{"b"}})
	assert.Equal(t, "stdout", c.Output)
	assert.Equal(t, []string{"object"}, c.Track)
	assert.Equal(t, []string{"a", "b"}, c.Watch)
	assert.True(t, *c.Color)
}
