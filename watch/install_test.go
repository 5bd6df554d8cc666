package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/vm"
)

func TestAliasLifecycle(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
watch.install("_w")
a = [1]
_w(a, callback=cb)
a.append(2)
_w.unwatch(a)
a.append(3)
_w()
_w.unwatch()
watch.uninstall("_w")
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
	assert.Empty(t, r.Aliases())
	_, bound := r.Machine().Globals.Lookup("_w")
	assert.False(t, bound)

	_, err := r.Machine().Eval("_w")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such variable defined: _w")
}

func TestInstallFromGo(t *testing.T) {
	r, _ := newTestRegistry(t, "")
	require.NoError(t, r.Install("w", nil))
	assert.Equal(t, []string{"w"}, r.Aliases())
	v, ok := r.Machine().Globals.Lookup("w")
	require.True(t, ok)
	assert.Equal(t, vm.BuiltinValue{Name: EntryPoint}, v)

	assert.ErrorIs(t, r.Install("1bad", nil), ErrBadAlias)
	assert.ErrorIs(t, r.Install("", nil), ErrBadAlias)
	assert.ErrorIs(t, r.Uninstall("nope"), ErrUnknownAlias)
}

func TestUninstallKeepsReassignedName(t *testing.T) {
	r, _ := newTestRegistry(t, `
watch.install("w")
w = 5
watch.uninstall("w")
`)
	require.NoError(t, r.Machine().Run())
	v, ok := r.Machine().Globals.Lookup("w")
	require.True(t, ok)
	assert.Equal(t, vm.IntValue(5), v)
}

func TestInstallDefaultName(t *testing.T) {
	r, _ := newTestRegistry(t, "watch.install()\n")
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, []string{EntryPoint}, r.Aliases())
}

func TestUninstallUnknownAliasFromScript(t *testing.T) {
	r, _ := newTestRegistry(t, "watch.uninstall(\"nope\")\n")
	assert.ErrorIs(t, r.Machine().Run(), ErrUnknownAlias)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier("_w"))
	assert.True(t, validIdentifier("w2"))
	assert.False(t, validIdentifier("2w"))
	assert.False(t, validIdentifier("a.b"))
}
