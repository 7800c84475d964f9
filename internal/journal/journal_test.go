package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/pkg/models"
)

func result(sel string, status models.PatchStatus) models.PatchResult {
	return models.PatchResult{Event: models.NewInlineStyle(sel, "color: red;", ""), Status: status}
}

func TestRecentWrapsAround(t *testing.T) {
	j := New(3)
	for _, sel := range []string{"#a", "#b", "#c", "#d"} {
		j.Record(result(sel, models.StatusApplied))
	}

	recent := j.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "#b", recent[0].Event.Selector)
	assert.Equal(t, "#d", recent[2].Event.Selector)

	last := j.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, "#d", last[0].Event.Selector)
}

func TestRecentBeforeFull(t *testing.T) {
	j := New(5)
	j.Record(result("#a", models.StatusApplied))
	j.Record(result("#b", models.StatusFailed))

	recent := j.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "#a", recent[0].Event.Selector)
}

func TestZeroCapacity(t *testing.T) {
	j := New(0)
	j.Record(result("#a", models.StatusApplied))

	assert.Empty(t, j.Recent(0))
	assert.Equal(t, 1, j.Stats().Applied)
}

func TestStats(t *testing.T) {
	j := New(10)
	j.Record(result("#a", models.StatusApplied))
	j.Record(result("#a", models.StatusUnchanged))
	j.Record(result("#b", models.StatusFailed))
	j.Connected(ConnectionEvent{ID: "1", Open: true})
	j.Connected(ConnectionEvent{ID: "2", Open: true})
	j.Connected(ConnectionEvent{ID: "1", Open: false})

	assert.Equal(t, Stats{Connections: 1, Applied: 1, Unchanged: 1, Failed: 1}, j.Stats())
}

func TestSubscribe(t *testing.T) {
	j := New(10)
	ch := j.Subscribe()

	j.Record(result("#a", models.StatusApplied))
	j.BroadcastConfigReload("devsync.yml")

	u := <-ch
	assert.Equal(t, UpdatePatch, u.Type)
	require.NotNil(t, u.Result)
	assert.Equal(t, "#a", u.Result.Event.Selector)

	u = <-ch
	assert.Equal(t, UpdateConfigReload, u.Type)
	assert.Equal(t, "devsync.yml", u.File)

	j.Unsubscribe(ch)
	j.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}
