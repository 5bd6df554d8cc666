package watch

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/snapshot"
	"github.com/timewinder-dev/watchpoint/vm"
)

// Config holds the registry-wide defaults. A nil Callback selects the
// built-in printer; a nil Output selects the machine's stdout.
type Config struct {
	Callback Callback
	Output   io.Writer
	Track    TrackMode
	History  bool
}

// Option overrides one field of the registry configuration.
type Option func(c *Config)

func WithCallback(cb Callback) Option {
	return func(c *Config) { c.Callback = cb }
}

func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.Output = w }
}

func WithTrack(t TrackMode) Option {
	return func(c *Config) { c.Track = t }
}

func WithHistory(on bool) Option {
	return func(c *Config) { c.History = on }
}

type lineMark struct {
	line     int
	function string
}

// Registry is the watch state of one machine: active targets in
// registration order, configuration, and installed aliases. The frame hook
// is attached exactly while targets is non-empty.
//
// A target ends when it is unwatched, on Restore or Close, or when the
// function frame it is scoped to returns. Targets registered from inside a
// callback on the callback's own locals end when the callback returns.
type Registry struct {
	machine  *interp.Machine
	defaults Config
	config   Config

	targets []*Target
	aliases map[string]*interp.StackFrame

	installed bool
	next      interp.Hook

	history  *History
	prevLine map[*interp.StackFrame]lineMark

	// ownedOutput is a file opened through OpenOutput; it is closed when
	// replaced or on Restore.
	ownedOutput io.Closer
}

// NewRegistry binds a registry to m and registers the script natives.
// defaults become the configuration Restore returns to.
func NewRegistry(m *interp.Machine, defaults Config) *Registry {
	if defaults.Track == 0 {
		defaults.Track = DefaultTrack
	}
	r := &Registry{
		machine:  m,
		defaults: defaults,
		config:   defaults,
		aliases:  make(map[string]*interp.StackFrame),
		prevLine: make(map[*interp.StackFrame]lineMark),
	}
	r.registerNatives()
	if defaults.History {
		r.Configure()
	}
	return r
}

func (r *Registry) Machine() *interp.Machine {
	return r.machine
}

// Config returns the effective configuration.
func (r *Registry) Config() Config {
	return r.config
}

// Configure applies opts over the current configuration. Fields not named
// by an option keep their value.
func (r *Registry) Configure(opts ...Option) {
	prev := r.config.Output
	for _, o := range opts {
		o(&r.config)
	}
	if r.config.Output != prev {
		r.closeOwned()
	}
	if r.config.History && r.history == nil {
		r.history = NewHistory(snapshot.NewLRUCache(snapshot.NewMemoryStore(), 0))
		for _, t := range r.targets {
			r.history.Begin(t)
		}
	}
	log.Debug().Str("track", r.config.Track.String()).Bool("history", r.config.History).Msg("watch: configured")
}

// OpenOutput resolves a file option: "stdout", "stderr" or a path opened
// for appending. The returned closer is nil for the standard streams.
func OpenOutput(name string) (io.Writer, io.Closer, error) {
	switch name {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// SetOutputFile directs the printer to name, see OpenOutput.
func (r *Registry) SetOutputFile(name string) error {
	w, c, err := OpenOutput(name)
	if err != nil {
		return configErr("file", err, "%s", name)
	}
	r.Configure(WithOutput(w))
	r.ownedOutput = c
	return nil
}

func (r *Registry) closeOwned() {
	if r.ownedOutput == nil {
		return
	}
	if err := r.ownedOutput.Close(); err != nil {
		log.Warn().Err(err).Msg("watch: closing output")
	}
	r.ownedOutput = nil
}

func (r *Registry) output() io.Writer {
	if r.config.Output != nil {
		return r.config.Output
	}
	if r.machine.Stdout != nil {
		return r.machine.Stdout
	}
	return os.Stdout
}

func (r *Registry) printer() *Printer {
	return &Printer{Out: r.output()}
}

// Targets returns the active targets in registration order.
func (r *Registry) Targets() []*Target {
	return append([]*Target(nil), r.targets...)
}

// Installed reports whether the frame hook is attached.
func (r *Registry) Installed() bool {
	return r.installed
}

// History returns the change history, nil unless enabled.
func (r *Registry) History() *History {
	return r.history
}

// Watch registers one target per reference, made from the innermost of
// frames. A zero track selects the configured default. Every reference is
// validated before any is registered.
func (r *Registry) Watch(frames interp.StackFrames, refs []*vm.RefValue, track TrackMode, cb Callback) ([]*Target, error) {
	if track == 0 {
		track = r.config.Track
	}
	added := make([]*Target, 0, len(refs))
	for i, ref := range refs {
		t, err := newTarget(ref, frames, r.machine.Globals, track, cb)
		if err != nil {
			return nil, configErr("target", err, "argument %d", i+1)
		}
		added = append(added, t)
	}
	if len(added) == 0 {
		return nil, nil
	}
	for _, t := range added {
		r.targets = append(r.targets, t)
		if r.history != nil {
			r.history.Begin(t)
		}
		log.Debug().Str("target", t.String()).Str("track", t.Track.String()).Int("depth", t.depth).Msg("watch: registered")
	}
	r.ensureHook()
	return added, nil
}

// WatchGlobal registers a global name that need not be bound yet. The
// first value it is bound to becomes its baseline without firing.
func (r *Registry) WatchGlobal(name string, track TrackMode, cb Callback) (*Target, error) {
	if !validIdentifier(name) {
		return nil, configErr("target", ErrNotReference, "%q is not a name", name)
	}
	if track == 0 {
		track = r.config.Track
	}
	t := &Target{
		Path:     NamePath{Name: name},
		Track:    track,
		Callback: cb,
		frame:    r.machine.Globals,
	}
	t.rebaseline(r.machine.Globals)
	r.targets = append(r.targets, t)
	if r.history != nil {
		r.history.Begin(t)
	}
	log.Debug().Str("target", name).Bool("bound", t.primed).Msg("watch: registered global")
	r.ensureHook()
	return t, nil
}

// Unwatch removes the targets denoted by refs as seen from the innermost of
// frames and returns how many were removed.
func (r *Registry) Unwatch(frames interp.StackFrames, refs []*vm.RefValue) (int, error) {
	paths := make([]Path, len(refs))
	for i, ref := range refs {
		if ref == nil {
			return 0, configErr("target", ErrNotReference, "argument %d", i+1)
		}
		paths[i] = PathFromRef(ref)
	}
	removed := 0
	for _, p := range paths {
		var frame *interp.StackFrame
		if np, ok := p.(NamePath); ok {
			frame, _ = bindingFrame(np.Name, frames, r.machine.Globals)
		}
		removed += r.removeWhere(func(t *Target) bool {
			if !t.Path.Same(p) {
				return false
			}
			return frame == nil || t.frame == frame
		})
	}
	return removed, nil
}

// Remove drops a single target.
func (r *Registry) Remove(t *Target) bool {
	return r.removeWhere(func(o *Target) bool { return o == t }) > 0
}

// UnwatchAll clears every target and detaches the hook.
func (r *Registry) UnwatchAll() {
	r.removeWhere(func(*Target) bool { return true })
}

func (r *Registry) removeWhere(match func(t *Target) bool) int {
	kept := r.targets[:0]
	n := 0
	for _, t := range r.targets {
		if match(t) {
			t.removed = true
			n++
			log.Debug().Str("target", t.String()).Msg("watch: removed")
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(r.targets); i++ {
		r.targets[i] = nil
	}
	r.targets = kept
	if len(r.targets) == 0 {
		r.uninstallHook()
	}
	return n
}

// Restore clears all targets and returns the configuration to the
// registry's defaults. Installed aliases stay bound.
func (r *Registry) Restore() {
	r.UnwatchAll()
	r.closeOwned()
	r.config = r.defaults
	r.history = nil
	if r.config.History {
		r.Configure()
	}
	log.Debug().Msg("watch: restored defaults")
}

// Close detaches the registry from its machine.
func (r *Registry) Close() error {
	r.UnwatchAll()
	r.closeOwned()
	return nil
}

func (r *Registry) ensureHook() {
	if r.installed {
		return
	}
	r.next = r.machine.SetHook(r)
	r.installed = true
	log.Debug().Msg("watch: hook installed")
}

func (r *Registry) uninstallHook() {
	if !r.installed {
		return
	}
	r.installed = false
	clear(r.prevLine)
	if cur, ok := r.machine.Hook().(*Registry); ok && cur == r {
		r.machine.SetHook(r.next)
		r.next = nil
	}
	log.Debug().Msg("watch: hook removed")
}

func (r *Registry) String() string {
	return fmt.Sprintf("watch.Registry(%d targets)", len(r.targets))
}
