package integration

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
	"github.com/timewinder-dev/watchpoint/watch"
)

type run struct {
	machine  *interp.Machine
	registry *watch.Registry
	events   []*watch.Event
	out      bytes.Buffer
}

// runScript executes a testdata script with a recording default callback.
// Scripts that configure their own callback replace it.
func runScript(t *testing.T, path string) *run {
	t.Helper()
	prog, err := vm.CompilePath(path)
	require.NoError(t, err)
	r := &run{machine: interp.NewMachine(prog)}
	r.machine.Stdout = &r.out
	r.registry = watch.NewRegistry(r.machine, watch.Config{
		Callback: func(ev *watch.Event) error {
			r.events = append(r.events, ev)
			return nil
		},
	})
	t.Cleanup(func() { r.registry.Close() })
	require.NoError(t, r.machine.Run())
	return r
}

func (r *run) lines() []int {
	var out []int
	for _, ev := range r.events {
		out = append(out, ev.Location.Line)
	}
	return out
}

func TestAliasingScenario(t *testing.T) {
	r := runScript(t, filepath.Join("..", "testdata", "scenarios", "aliasing.star"))
	require.Len(t, r.events, 6)
	assert.Equal(t, []int{6, 7, 9, 10, 11, 2}, r.lines())
	assert.Equal(t, watch.Modified, r.events[3].Kind)
	assert.Equal(t, "fill", r.events[5].Location.Function)
}

func TestSubscriptScenario(t *testing.T) {
	r := runScript(t, filepath.Join("..", "testdata", "scenarios", "subscript.star"))
	var targets []string
	for _, ev := range r.events {
		targets = append(targets, ev.Target.String())
	}
	assert.Equal(t, []string{"a[1]", "a[1]", `d["a"]`}, targets)
	assert.Equal(t, vm.IntValue(4), r.events[1].New)
}

func TestAttributeScenario(t *testing.T) {
	r := runScript(t, filepath.Join("..", "testdata", "scenarios", "attribute.star"))
	require.Len(t, r.events, 1)
	assert.Equal(t, "obj.a", r.events[0].Target.String())
	assert.Empty(t, r.registry.Targets())
	assert.False(t, r.registry.Installed())
}

func TestTrackScenario(t *testing.T) {
	r := runScript(t, filepath.Join("..", "testdata", "scenarios", "track.star"))
	// Rebinding b to an equal list is not a value change.
	require.Len(t, r.events, 2)
	assert.Equal(t, watch.Rebound, r.events[0].Kind)
	assert.Equal(t, watch.Modified, r.events[1].Kind)
	assert.Equal(t, []int{4, 9}, r.lines())
	assert.Len(t, r.registry.Targets(), 1)
}

func TestSmallScripts(t *testing.T) {
	r := runScript(t, filepath.Join("..", "testdata", "small", "counter.star"))
	assert.Len(t, r.events, 3)
	for _, ev := range r.events {
		assert.Equal(t, "bump", ev.Location.Function)
	}

	r = runScript(t, filepath.Join("..", "testdata", "small", "objects.star"))
	assert.Contains(t, r.out.String(), "point.x 1 -> 10 at")

	r = runScript(t, filepath.Join("..", "testdata", "small", "alias.star"))
	assert.Len(t, r.events, 1)
	assert.Empty(t, r.registry.Aliases())
}
