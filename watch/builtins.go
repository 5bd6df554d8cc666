package watch

import (
	"fmt"
	"io"

	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

func (r *Registry) registerNatives() {
	m := r.machine
	m.RegisterNative(EntryPoint, r.nativeWatch)
	m.RegisterNative("unwatch", r.nativeUnwatch)
	m.RegisterNative(EntryPoint+".unwatch", r.nativeUnwatch)
	m.RegisterNative(EntryPoint+".config", r.nativeConfig)
	m.RegisterNative(EntryPoint+".restore", r.nativeRestore)
	m.RegisterNative(EntryPoint+".install", r.nativeInstall)
	m.RegisterNative(EntryPoint+".uninstall", r.nativeUninstall)
}

func isNone(v vm.Value) bool {
	_, ok := v.(vm.NoneValue)
	return v == nil || ok
}

func (r *Registry) callbackArg(v vm.Value) (Callback, error) {
	switch v.(type) {
	case vm.FnPtrValue, vm.BuiltinValue:
		return ScriptCallback(r.machine, v), nil
	}
	return nil, configErr("callback", ErrNotCallable, "got %s", vm.GetTypeName(v))
}

// watch(x, ..., callback=None, track=None)
func (r *Registry) nativeWatch(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	var (
		refs  []*vm.RefValue
		cb    Callback
		track TrackMode
		err   error
	)
	for _, a := range args {
		switch a.Key {
		case "":
			if a.Ref == nil {
				return nil, configErr("target", ErrNotReference, "got %s", vm.Repr(a.Value))
			}
			refs = append(refs, a.Ref)
		case "callback":
			if isNone(a.Value) {
				continue
			}
			if cb, err = r.callbackArg(a.Value); err != nil {
				return nil, err
			}
		case "track":
			if isNone(a.Value) {
				continue
			}
			if track, err = ParseTrack(a.Value); err != nil {
				return nil, err
			}
		default:
			return nil, configErr(a.Key, ErrBadOption, "watch() got an unexpected keyword argument")
		}
	}
	if len(refs) == 0 {
		return vm.None, nil
	}
	if _, err := r.Watch(ctx.Frames, refs, track, cb); err != nil {
		return nil, err
	}
	if !ctx.Machine.InHook() {
		r.prevLine[ctx.Caller()] = lineMark{line: ctx.Line, function: callerName(ctx)}
	}
	return vm.None, nil
}

func callerName(ctx *interp.CallContext) string {
	if len(ctx.Frames) <= 1 {
		return "<module>"
	}
	if fn := ctx.Machine.GetFunction(ctx.Caller().PC); fn != nil {
		return fn.Name
	}
	return ""
}

// unwatch(x, ...) removes the named targets; unwatch() removes all.
func (r *Registry) nativeUnwatch(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	if len(args) == 0 {
		r.UnwatchAll()
		return vm.None, nil
	}
	refs := make([]*vm.RefValue, 0, len(args))
	for _, a := range args {
		if a.Key != "" {
			return nil, configErr(a.Key, ErrBadOption, "unwatch() takes no keyword arguments")
		}
		if a.Ref == nil {
			return nil, configErr("target", ErrNotReference, "got %s", vm.Repr(a.Value))
		}
		refs = append(refs, a.Ref)
	}
	_, err := r.Unwatch(ctx.Frames, refs)
	return vm.None, err
}

// watch.config(callback=None, file=None, track=None, history=None)
func (r *Registry) nativeConfig(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	var (
		opts []Option
		file string
	)
	for _, a := range args {
		if a.Key == "" {
			return nil, configErr("config", ErrBadOption, "watch.config() takes keyword arguments only")
		}
		if isNone(a.Value) {
			continue
		}
		switch a.Key {
		case "callback":
			cb, err := r.callbackArg(a.Value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithCallback(cb))
		case "file":
			s, ok := a.Value.(vm.StrValue)
			if !ok {
				return nil, configErr("file", ErrBadOption, "file must be a string, got %s", vm.GetTypeName(a.Value))
			}
			file = string(s)
		case "track":
			t, err := ParseTrack(a.Value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithTrack(t))
		case "history":
			opts = append(opts, WithHistory(a.Value.AsBool()))
		default:
			return nil, configErr(a.Key, ErrBadOption, "watch.config() got an unexpected keyword argument")
		}
	}
	var (
		out   io.Writer
		owned io.Closer
	)
	if file != "" {
		w, c, err := OpenOutput(file)
		if err != nil {
			return nil, configErr("file", err, "%s", file)
		}
		out, owned = w, c
		opts = append(opts, WithOutput(out))
	}
	r.Configure(opts...)
	if out != nil {
		r.ownedOutput = owned
	}
	return vm.None, nil
}

func (r *Registry) nativeRestore(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("watch.restore() takes no arguments")
	}
	r.Restore()
	return vm.None, nil
}

func aliasArg(name string, args []vm.ArgValue, def string) (string, error) {
	switch len(args) {
	case 0:
		if def != "" {
			return def, nil
		}
	case 1:
		if args[0].Key == "" || args[0].Key == "name" {
			if s, ok := args[0].Value.(vm.StrValue); ok {
				return string(s), nil
			}
		}
	}
	return "", configErr(name, ErrBadAlias, "expected one alias name")
}

// watch.install(name="watch")
func (r *Registry) nativeInstall(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	alias, err := aliasArg("install", args, EntryPoint)
	if err != nil {
		return nil, err
	}
	return vm.None, r.Install(alias, nil)
}

// watch.uninstall(name)
func (r *Registry) nativeUninstall(ctx *interp.CallContext, args []vm.ArgValue) (vm.Value, error) {
	alias, err := aliasArg("uninstall", args, "")
	if err != nil {
		return nil, err
	}
	return vm.None, r.Uninstall(alias)
}
