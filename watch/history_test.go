package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/watchpoint/interp"
)

func TestHistoryRecordsValues(t *testing.T) {
	r, _ := newTestRegistry(t, `
watch.config(history=True, callback=print)
a = [1]
watch(a)
a.append(2)
a.append(3)
`)
	require.NoError(t, r.Machine().Run())
	h := r.History()
	require.NotNil(t, h)
	targets := r.Targets()
	require.Len(t, targets, 1)

	values, err := h.Values(targets[0])
	require.NoError(t, err)
	var shown []string
	for _, v := range values {
		shown = append(shown, interp.FormatValue(v))
	}
	assert.Equal(t, []string{"[1]", "[1, 2]", "[1, 2, 3]"}, shown)

	recs := h.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Target)
	assert.True(t, recs[0].HasOld)
	assert.Equal(t, recs[0].New, recs[1].Old)
}

func TestHistoryUnreachable(t *testing.T) {
	r, _ := newTestRegistry(t, `
d = {"k": 1}
watch(d["k"])
d.pop("k")
`)
	r.Configure(WithHistory(true), WithCallback(func(*Event) error { return nil }))
	require.NoError(t, r.Machine().Run())
	values, err := r.History().Values(r.Targets()[0])
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Nil(t, values[1])
}
