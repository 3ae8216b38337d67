package testutil

import (
	"testing"
	"time"

	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/records"
)

// WaitForStatus polls store until the record reaches a terminal status and
// returns it. It fails the test after timeout.
func WaitForStatus(t *testing.T, store *records.Store, id string, timeout time.Duration) models.ProcessedFile {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(id)
		if !ok {
			t.Fatalf("record %s not found", id)
		}
		if rec.Status.IsTerminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("record %s did not reach a terminal status within %s", id, timeout)
	return models.ProcessedFile{}
}
