package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		prev   Operation
		next   Operation
		want   Operation
		wantOK bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels", OpCreate, OpDelete, 0, false},
		{"create then rename cancels", OpCreate, OpRename, 0, false},
		{"delete then create is a replace", OpDelete, OpCreate, OpModify, true},
		{"modify then delete is delete", OpModify, OpDelete, OpDelete, true},
		{"modify then modify is modify", OpModify, OpModify, OpModify, true},
		{"config change stays config change", OpConfigChange, OpConfigChange, OpConfigChange, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coalesce(tt.prev, tt.next)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	// When: one event is added
	d.Add(FileEvent{Path: "catalog.db", Operation: OpModify, Timestamp: time.Now()})

	// Then: it arrives alone after the window
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "catalog.db", batch[0].Path)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_BurstCoalescesIntoSortedBatch(t *testing.T) {
	// Given: a debouncer
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a burst of writes hits two files
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "catalog.db-wal", Operation: OpModify})
		d.Add(FileEvent{Path: "catalog.db", Operation: OpModify})
	}
	assert.Equal(t, 2, d.Pending())

	// Then: one batch, one event per path, ordered by path
	select {
	case batch := <-d.Output():
		require.Len(t, batch, 2)
		assert.Equal(t, "catalog.db", batch[0].Path)
		assert.Equal(t, "catalog.db-wal", batch[1].Path)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_CreateThenDelete_NoEvent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "records.json.tmp", Operation: OpCreate})
	d.Add(FileEvent{Path: "records.json.tmp", Operation: OpDelete})
	assert.Equal(t, 0, d.Pending())

	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch: %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Add(FileEvent{Path: "catalog.db", Operation: OpModify})

	d.Stop()
	d.Stop()

	_, open := <-d.Output()
	assert.False(t, open)

	// Adds after stop are ignored
	d.Add(FileEvent{Path: "catalog.db", Operation: OpModify})
	assert.Equal(t, 0, d.Pending())
}
