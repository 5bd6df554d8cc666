package watch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

func newTestRegistry(t *testing.T, src string) (*Registry, *bytes.Buffer) {
	t.Helper()
	prg, err := vm.CompileLiteral(src)
	require.NoError(t, err)
	m := interp.NewMachine(prg)
	var out bytes.Buffer
	m.Stdout = &out
	r := NewRegistry(m, Config{})
	t.Cleanup(func() { r.Close() })
	return r, &out
}

// counting prepends a script callback that appends the changed target to
// the global list calls.
const counting = `
calls = []
def cb(target, old, new, location):
    calls.append(target)
`

func callCount(t *testing.T, r *Registry) int {
	t.Helper()
	v, ok := r.Machine().Globals.Lookup("calls")
	require.True(t, ok)
	return len(v.(*vm.ArrayValue).Items)
}

type eventLog struct {
	events []*Event
}

func (l *eventLog) callback(ev *Event) error {
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) kinds() []ChangeKind {
	var out []ChangeKind
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestValueTrackingFollowsAliases(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
def fill(d):
    d["c"] = 3

a = [1, 2, 3]
watch(a, callback=cb)
a[0] = 2
a.append(4)
b = a
b.append(5)
a = {"a": 1}
a["b"] = 2
fill(a)
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 6, callCount(t, r))
}

func TestSubscriptTarget(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
def one():
    return 1

a = [1, 2, 3]
watch(a[1], callback=cb)
a[0] = 2
a[1] = 3
a[one()] = 4
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 2, callCount(t, r))
}

func TestDictKeyTargetIgnoresOtherKeys(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
a = {"a": 1}
watch(a["a"], callback=cb)
a["b"] = 3
a["a"] = 2
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
}

func TestUnwatchAttribute(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
obj = object(a=1, b=1)
watch(obj.a, obj.b, callback=cb)
obj.a = 2
unwatch(obj.a)
obj.a = 3
obj.b = 2
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 2, callCount(t, r))
	require.Len(t, r.Targets(), 1)
	assert.Equal(t, "obj.b", r.Targets()[0].String())
}

func TestObjectTracking(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
a = [1]
watch(a, callback=cb, track="object")
a.append(2)
a[0] = 5
a = [5, 2]
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
}

func TestBothModesPreferRebound(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
a = [1]
watch(a, track=["variable", "object"])
a.append(2)
a = [3]
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, []ChangeKind{Modified, Rebound}, log.kinds())
}

func TestInvalidTrackRegistersNothing(t *testing.T) {
	for _, track := range []string{`["invalid"]`, `"invalid"`, `[]`, `{}`} {
		r, _ := newTestRegistry(t, "a = [1]\nwatch(a, track="+track+")\n")
		err := r.Machine().Run()
		require.Error(t, err, track)
		var cfg *ConfigError
		assert.ErrorAs(t, err, &cfg, track)
		assert.Empty(t, r.Targets(), track)
		assert.False(t, r.Installed(), track)
		assert.Nil(t, r.Machine().Hook(), track)
	}
}

func TestWatchRejectsNonReferences(t *testing.T) {
	r, _ := newTestRegistry(t, "a = 1\nwatch(a, 1 + 2)\n")
	err := r.Machine().Run()
	assert.ErrorIs(t, err, ErrNotReference)
	assert.Empty(t, r.Targets())
}

func TestWatchWithoutArgumentsIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t, "watch()\nunwatch()\n")
	require.NoError(t, r.Machine().Run())
	assert.False(t, r.Installed())
}

func TestEventLocationAndValues(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `a = [1]
watch(a)
x = 0
a.append(2)
x = 1
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	require.Len(t, log.events, 1)
	ev := log.events[0]
	assert.Equal(t, 4, ev.Location.Line)
	assert.Equal(t, "<module>", ev.Location.Function)
	assert.Equal(t, "[1]", interp.FormatValue(ev.Old))
	assert.Equal(t, "[1, 2]", interp.FormatValue(ev.New))
}

func TestLastStatementIsReported(t *testing.T) {
	r, _ := newTestRegistry(t, counting+`
a = [1]
watch(a, callback=cb)
a.append(2)
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
}

func TestReachability(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
d = {"k": 1}
watch(d["k"])
d.pop("k")
d["other"] = 1
d["k"] = 2
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	require.Equal(t, []ChangeKind{Vanished, Appeared}, log.kinds())
	assert.Nil(t, log.events[0].New)
	assert.Nil(t, log.events[1].Old)
	assert.Equal(t, vm.IntValue(2), log.events[1].New)
}

func TestAttributeVanishes(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
obj = object(a=1)
watch(obj.a)
delattr(obj, "a")
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, []ChangeKind{Vanished}, log.kinds())
}

func TestLocalTargetIsDroppedOnReturn(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
def f():
    x = [1]
    watch(x)
    x.append(2)
    return x

y = f()
y.append(3)
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	assert.Len(t, log.events, 1)
	assert.Empty(t, r.Targets())
	assert.False(t, r.Installed())
}

func TestGlobalTargetSeenFromCallee(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
count = 0
def inc():
    count = count + 1
    pass

watch(count)
inc()
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	require.Len(t, log.events, 1)
	assert.Equal(t, "inc", log.events[0].Location.Function)
	assert.Equal(t, 4, log.events[0].Location.Line)
}

func TestCallbackChangesAreNotReported(t *testing.T) {
	r, _ := newTestRegistry(t, `
calls = []
a = [1]
def cb(target, old, new, location):
    calls.append(target)
    a.append(0)

watch(a, callback=cb)
a.append(2)
x = 1
y = 2
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
}

func TestFailingCallbackKeepsRunning(t *testing.T) {
	r, out := newTestRegistry(t, counting+`
def bad(target, old, new, location):
    calls.append(target)
    return 1 // 0

a = [1]
watch(a, callback=bad)
a.append(2)
a.append(3)
done = True
`)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 2, callCount(t, r))
	assert.Contains(t, out.String(), "callback for a failed")
}

func TestGoCallbackPanicIsRecovered(t *testing.T) {
	r, out := newTestRegistry(t, "a = [1]\nwatch(a)\na.append(2)\n")
	r.Configure(WithCallback(func(*Event) error { panic("boom") }))
	require.NoError(t, r.Machine().Run())
	assert.Contains(t, out.String(), "boom")
}

func TestUnwatchAllDetachesAndRestoresHook(t *testing.T) {
	var seen int
	r, _ := newTestRegistry(t, counting+`
a = [1]
watch(a, callback=cb)
a.append(2)
unwatch()
a.append(3)
`)
	prev := interp.HookFunc(func(interp.StepEvent) { seen++ })
	r.Machine().SetHook(prev)
	require.NoError(t, r.Machine().Run())
	assert.Equal(t, 1, callCount(t, r))
	assert.False(t, r.Installed())
	assert.NotNil(t, r.Machine().Hook())
	assert.Greater(t, seen, 0)
}

func TestRestore(t *testing.T) {
	r, _ := newTestRegistry(t, "a = [1]\nwatch(a)\n")
	r.Configure(WithTrack(TrackObject), WithHistory(true))
	require.NoError(t, r.Machine().Run())
	require.Len(t, r.Targets(), 1)
	assert.Equal(t, TrackObject, r.Targets()[0].Track)

	r.Restore()
	assert.Empty(t, r.Targets())
	assert.False(t, r.Installed())
	assert.Equal(t, DefaultTrack, r.Config().Track)
	assert.Nil(t, r.History())
}

func TestWatchValidatesEveryReference(t *testing.T) {
	r, _ := newTestRegistry(t, "a = 1\n")
	require.NoError(t, r.Machine().Run())
	frames := interp.StackFrames{r.Machine().Globals}
	ok := &vm.RefValue{Kind: vm.RefName, Name: "a", Value: vm.IntValue(1), Text: "a"}
	_, err := r.Watch(frames, []*vm.RefValue{ok, nil}, 0, nil)
	assert.ErrorIs(t, err, ErrNotReference)
	assert.Empty(t, r.Targets())

	added, err := r.Watch(frames, []*vm.RefValue{ok}, 0, nil)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.True(t, r.Installed())
	assert.True(t, r.Remove(added[0]))
	assert.False(t, r.Installed())
}

func TestWatchGlobalBeforeBinding(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
x = 1
x = 2
`)
	r.Configure(WithCallback(log.callback))
	_, err := r.WatchGlobal("x", 0, nil)
	require.NoError(t, err)
	require.NoError(t, r.Machine().Run())
	require.Len(t, log.events, 1)
	assert.Equal(t, vm.IntValue(1), log.events[0].Old)
	assert.Equal(t, vm.IntValue(2), log.events[0].New)

	_, err = r.WatchGlobal("a.b", 0, nil)
	assert.ErrorIs(t, err, ErrNotReference)
}

func TestCallbackLocalTargetsAreDropped(t *testing.T) {
	r, _ := newTestRegistry(t, `
g = [0]
def reg(target, old, new, location):
    z = [0]
    watch(z, g)

a = [1]
watch(a, callback=reg)
a.append(2)
unwatch(a)
x = 1
`)
	require.NoError(t, r.Machine().Run())
	targets := r.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "g", targets[0].String())
	assert.Same(t, r.Machine().Globals, targets[0].Frame())

	r.UnwatchAll()
	assert.False(t, r.Installed())
}

func TestCallbackLocalTargetOnlyDetaches(t *testing.T) {
	r, _ := newTestRegistry(t, `
def reg(target, old, new, location):
    z = [0]
    watch(z)

a = [1]
watch(a, callback=reg)
a.append(2)
unwatch(a)
x = 1
`)
	require.NoError(t, r.Machine().Run())
	assert.Empty(t, r.Targets())
	assert.False(t, r.Installed())
	assert.Nil(t, r.Machine().Hook())
}

func TestDispatchFollowsRegistrationOrder(t *testing.T) {
	var log eventLog
	r, _ := newTestRegistry(t, `
a = [1]
b = [1]
watch(b, a)
x = [a.append(2), b.append(2)]
`)
	r.Configure(WithCallback(log.callback))
	require.NoError(t, r.Machine().Run())
	var order []string
	for _, ev := range log.events {
		order = append(order, ev.Target.String())
	}
	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, log.events[0].Location, log.events[1].Location)
}
