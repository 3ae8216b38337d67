// Package testutil holds fakes and helpers shared by package tests.
package testutil

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/format-smormat/backend/internal/converter"
)

// FakeConverter implements converter.Converter for tests. It fails for any
// input containing FailOn (when set), panics for input containing PanicOn,
// and otherwise returns Output or a canned rendering of the input.
type FakeConverter struct {
	Output  string
	FailOn  string
	PanicOn string

	// Gate, when non-nil, blocks every call until it is closed.
	Gate chan struct{}

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

// Convert satisfies converter.Converter.
func (f *FakeConverter) Convert(htmlText string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, htmlText)
	f.mu.Unlock()

	if f.Gate != nil {
		<-f.Gate
	}
	if f.PanicOn != "" && strings.Contains(htmlText, f.PanicOn) {
		panic("fake converter panic")
	}
	if f.FailOn != "" && strings.Contains(htmlText, f.FailOn) {
		return "", &converter.ConversionError{Err: errors.New("fake failure")}
	}
	if f.Output != "" {
		return f.Output, nil
	}
	return "converted: " + htmlText, nil
}

// Calls returns how many times Convert ran.
func (f *FakeConverter) Calls() int {
	return int(f.calls.Load())
}

// Inputs returns every input seen so far.
func (f *FakeConverter) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.seen))
	copy(out, f.seen)
	return out
}
