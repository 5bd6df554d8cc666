package watch

import (
	"sort"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
)

// EntryPoint is the builtin every alias is bound to.
const EntryPoint = "watch"

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c == '_' || unicode.IsLetter(c) {
			continue
		}
		if i > 0 && unicode.IsDigit(c) {
			continue
		}
		return false
	}
	return true
}

// Install binds the watch entry point under alias in ns, the globals when
// ns is nil. The alias supports alias(x) and alias.unwatch(x).
func (r *Registry) Install(alias string, ns *interp.StackFrame) error {
	if !validIdentifier(alias) {
		return configErr("install", ErrBadAlias, "%q", alias)
	}
	if ns == nil {
		ns = r.machine.Globals
	}
	ns.StoreVar(alias, vm.BuiltinValue{Name: EntryPoint})
	r.aliases[alias] = ns
	log.Debug().Str("alias", alias).Msg("watch: alias installed")
	return nil
}

// Uninstall removes an alias made by Install. A binding that has since
// been reassigned by the program is left alone.
func (r *Registry) Uninstall(alias string) error {
	ns, ok := r.aliases[alias]
	if !ok {
		return configErr("uninstall", ErrUnknownAlias, "%q", alias)
	}
	delete(r.aliases, alias)
	if v, ok := ns.Lookup(alias); ok {
		if b, isBuiltin := v.(vm.BuiltinValue); isBuiltin && b.Name == EntryPoint {
			ns.DeleteVar(alias)
		}
	}
	log.Debug().Str("alias", alias).Msg("watch: alias removed")
	return nil
}

// Aliases lists the installed alias names in order.
func (r *Registry) Aliases() []string {
	out := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
