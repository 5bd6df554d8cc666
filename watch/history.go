package watch

import (
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/watchpoint/snapshot"
	"github.com/timewinder-dev/watchpoint/vm"
)

// Record is one entry of the change history. Values are kept in a
// content-addressed store; a missing hash means the target was unreachable
// or the value could not be encoded.
type Record struct {
	Target   string
	Kind     ChangeKind
	Location Location
	Old      snapshot.Hash
	New      snapshot.Hash
	HasOld   bool
	HasNew   bool
}

// History keeps every observed value of every target. Identical values are
// stored once.
type History struct {
	store    snapshot.Store
	records  []Record
	baseline map[*Target]snapshot.Hash
	changes  map[*Target][]int
}

func NewHistory(store snapshot.Store) *History {
	return &History{
		store:    store,
		baseline: make(map[*Target]snapshot.Hash),
		changes:  make(map[*Target][]int),
	}
}

func (h *History) put(v vm.Value) (snapshot.Hash, bool) {
	if v == nil {
		return 0, false
	}
	hash, err := h.store.Put(v)
	if err != nil {
		log.Debug().Err(err).Msg("watch: history skipped value")
		return 0, false
	}
	return hash, true
}

// Begin stores t's registration value.
func (h *History) Begin(t *Target) {
	if hash, ok := h.put(t.last.Display()); ok {
		h.baseline[t] = hash
	}
}

// Record appends ev.
func (h *History) Record(ev *Event) {
	rec := Record{Target: ev.Target.String(), Kind: ev.Kind, Location: ev.Location}
	rec.Old, rec.HasOld = h.put(ev.Old)
	rec.New, rec.HasNew = h.put(ev.New)
	h.changes[ev.Target] = append(h.changes[ev.Target], len(h.records))
	h.records = append(h.records, rec)
}

// Records returns all changes in the order they were detected.
func (h *History) Records() []Record {
	return append([]Record(nil), h.records...)
}

// Values returns the successive values of t, starting with its value at
// registration. Unreachable steps appear as nil.
func (h *History) Values(t *Target) ([]vm.Value, error) {
	var out []vm.Value
	if hash, ok := h.baseline[t]; ok {
		v, err := h.store.Get(hash)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	for _, i := range h.changes[t] {
		rec := h.records[i]
		if !rec.HasNew {
			out = append(out, nil)
			continue
		}
		v, err := h.store.Get(rec.New)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Value loads a stored value by hash.
func (h *History) Value(hash snapshot.Hash) (vm.Value, error) {
	return h.store.Get(hash)
}
