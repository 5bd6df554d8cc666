package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/vm"
)

func TestDefaultPrinter(t *testing.T) {
	r, out := newTestRegistry(t, "a = [1]\nwatch(a)\na.append(2)\n")
	require.NoError(t, r.Machine().Run())
	text := out.String()
	assert.Contains(t, text, "Watch Triggered")
	assert.Contains(t, text, "modified")
	assert.Contains(t, text, "[1, 2]")
}

func TestFormatEventUnreachable(t *testing.T) {
	ev := &Event{
		Target:   &Target{Path: NamePath{Name: "x"}},
		Kind:     Vanished,
		Old:      vm.IntValue(3),
		Location: Location{Filename: "f.star", Line: 7, Function: "g"},
	}
	text := FormatEvent(ev)
	assert.Contains(t, text, "f.star:7")
	assert.Contains(t, text, "vanished")
	assert.Contains(t, text, "in g")
	assert.Contains(t, text, "<undefined>")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.log")
	r, out := newTestRegistry(t, `
watch.config(file=`+quote(path)+`)
a = [1]
watch(a)
a.append(2)
`)
	require.NoError(t, r.Machine().Run())
	require.NoError(t, r.Close())
	assert.Empty(t, out.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Watch Triggered")
}

func TestConfigIsAdditive(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
watch.config(callback=cb)
watch.config(track="object")
a = [1]
watch(a)
a.append(2)
a = [1, 2]
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
	assert.Equal(t, TrackObject, r.Config().Track)
}

func TestConfigRejectsUnknownOption(t *testing.T) {
	r, _ := newTestRegistry(t, "watch.config(colour=True)\n")
	assert.ErrorIs(t, r.Machine().Run(), ErrBadOption)

	r, _ = newTestRegistry(t, "watch.config(callback=3)\n")
	assert.ErrorIs(t, r.Machine().Run(), ErrNotCallable)
	assert.Nil(t, r.Config().Callback)
}

func quote(s string) string {
	return `"` + filepath.ToSlash(s) + `"`
}
