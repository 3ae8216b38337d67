package records

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/format-smormat/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string) models.ProcessedFile {
	return models.NewProcessedFile(id, id+".html", 10, time.Now())
}

func ids(recs []models.ProcessedFile) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestStore_PrependKeepsBatchOrder(t *testing.T) {
	s := NewStore()

	s.Prepend(newRecord("a"), newRecord("b"))
	s.Prepend(newRecord("c"), newRecord("d"), newRecord("e"))

	assert.Equal(t, []string{"c", "d", "e", "a", "b"}, ids(s.List()))
	assert.Equal(t, 5, s.Len())
}

func TestStore_PrependSkipsDuplicateIDs(t *testing.T) {
	s := NewStore()

	s.Prepend(newRecord("a"))
	s.Prepend(newRecord("a"), newRecord("b"), newRecord("b"))

	assert.Equal(t, []string{"b", "a"}, ids(s.List()))
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"), newRecord("b"), newRecord("c"), newRecord("d"))

	assert.True(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.List()))

	assert.False(t, s.Remove("b"), "second removal is a no-op")
	assert.False(t, s.Remove("missing"))
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.List()))

	_, ok := s.Get("c")
	assert.True(t, ok, "index must follow the shifted records")
	assert.True(t, s.Remove("d"))
	assert.Equal(t, []string{"a", "c"}, ids(s.List()))
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"), newRecord("b"))

	assert.Equal(t, 2, s.Clear())
	assert.Empty(t, s.List())
	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Prepend(newRecord("a"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_UpdateForwardOnly(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"))

	rec, ok := s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		return f.WithName("a.md")
	})
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessing, rec.Status)

	_, ok = s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		f.Status = models.StatusReading
		return f
	})
	assert.False(t, ok, "backward transition must be rejected")

	_, ok = s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		return f.WithContent("# A")
	})
	require.True(t, ok)

	_, ok = s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		return f.WithError()
	})
	assert.False(t, ok, "terminal records never change")

	got, _ := s.Get("a")
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "# A", got.Content)
}

func TestStore_UpdateKeepsID(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"))

	rec, ok := s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		f.ID = "hijacked"
		return f
	})
	require.True(t, ok)
	assert.Equal(t, "a", rec.ID)
	_, ok = s.Get("hijacked")
	assert.False(t, ok)
}

func TestStore_UpdateMissingIsNoop(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"))
	s.Remove("a")

	called := false
	_, ok := s.Update("a", func(f models.ProcessedFile) models.ProcessedFile {
		called = true
		return f
	})
	assert.False(t, ok)
	assert.False(t, called)
	assert.Zero(t, s.Len())
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Prepend(newRecord("a"))

	list := s.List()
	list[0].MarkdownName = "mutated"

	got, _ := s.Get("a")
	assert.Equal(t, models.PlaceholderName, got.MarkdownName)
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore()
	const n = 50
	recs := make([]models.ProcessedFile, n)
	for i := range recs {
		recs[i] = newRecord(fmt.Sprintf("r%02d", i))
	}
	s.Prepend(recs...)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Update(id, func(f models.ProcessedFile) models.ProcessedFile { return f.WithName(id + ".md") })
			s.Update(id, func(f models.ProcessedFile) models.ProcessedFile { return f.WithContent("# " + id) })
		}(recs[i].ID)
		if i%10 == 0 {
			go s.List()
		}
	}
	wg.Wait()

	list := s.List()
	require.Len(t, list, n)
	for i, r := range list {
		assert.Equal(t, recs[i].ID, r.ID, "order must be preserved")
		assert.Equal(t, models.StatusCompleted, r.Status)
		assert.Equal(t, r.ID+".md", r.MarkdownName)
		assert.Equal(t, "# "+r.ID, r.Content)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe()

	s.Prepend(newRecord("a"))
	s.Update("a", func(f models.ProcessedFile) models.ProcessedFile { return f.WithName("a.md") })
	s.Remove("a")
	s.Clear()

	want := []EventType{EventUpsert, EventUpsert, EventRemove, EventCleared}
	for i, typ := range want {
		select {
		case ev := <-events:
			assert.Equal(t, typ, ev.Type, "event %d", i)
			if typ == EventUpsert {
				require.NotNil(t, ev.Record)
				assert.Equal(t, "a", ev.Record.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open, "cancel closes the channel")

	s.Prepend(newRecord("b"))
}

func TestStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewStore()
	_, cancel := s.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			s.Prepend(newRecord(fmt.Sprintf("r%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, subscriberBuffer*3, s.Len())
}
