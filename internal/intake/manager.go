// Package intake runs the per-file read, name, convert pipeline and
// publishes every step to the shared record store.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/format-smormat/backend/internal/converter"
	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/naming"
	"github.com/format-smormat/backend/internal/records"
)

// File is one submitted document. Open is called once, from the file's
// own pipeline goroutine.
type File struct {
	Name      string
	Size      int64
	MediaType string
	Open      func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name, mediaType string, data []byte) File {
	return File{
		Name:      name,
		Size:      int64(len(data)),
		MediaType: mediaType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Options tunes the pipeline. The delays only make state transitions
// visible to a person watching the list; zero disables them.
type Options struct {
	NamingDelay  time.Duration
	ConvertDelay time.Duration
	MaxFileSize  int64
}

// Batch is the outcome of one Submit call.
type Batch struct {
	Records  []models.ProcessedFile `json:"records"`
	Rejected []string               `json:"rejected"`
}

// Manager handles async conversion of submitted files.
type Manager struct {
	store  *records.Store
	conv   converter.Converter
	opts   Options
	logger *zap.Logger

	wg sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewManager creates a pipeline manager writing to store.
func NewManager(store *records.Store, conv converter.Converter, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		conv:   conv,
		opts:   opts,
		logger: logger.Named("intake"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Submit filters files, creates one READING record per accepted file
// (prepended in submission order) and starts one pipeline per record
// without waiting for any of them. If files is non-empty and none is
// accepted, it returns an *UnsupportedFileTypeError and creates nothing.
func (m *Manager) Submit(files []File) (*Batch, error) {
	accepted, rejected := Partition(files)

	batch := &Batch{
		Records:  make([]models.ProcessedFile, 0, len(accepted)),
		Rejected: make([]string, 0, len(rejected)),
	}
	for _, f := range rejected {
		batch.Rejected = append(batch.Rejected, f.Name)
	}

	if len(accepted) == 0 {
		if len(rejected) > 0 {
			m.logger.Info("rejected batch", zap.Strings("files", batch.Rejected))
			return nil, &UnsupportedFileTypeError{Names: batch.Rejected}
		}
		return batch, nil
	}
	if len(rejected) > 0 {
		m.logger.Warn("dropping unsupported files from batch", zap.Strings("files", batch.Rejected))
	}

	now := m.now()
	for _, f := range accepted {
		rec := models.NewProcessedFile(m.newID(), f.Name, f.Size, now)
		rec.SourceMediaType = f.MediaType
		batch.Records = append(batch.Records, rec)
	}
	m.store.Prepend(batch.Records...)

	for i, f := range accepted {
		m.wg.Add(1)
		go m.process(batch.Records[i].ID, f)
	}

	return batch, nil
}

// Wait blocks until every started pipeline has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// process runs the pipeline for one record. All failures end in ERROR;
// updates for a record removed meanwhile are ignored by the store.
func (m *Manager) process(id string, f File) {
	defer m.wg.Done()

	log := m.logger.With(zap.String("record", shortID(id)), zap.String("file", f.Name))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r))
			m.fail(id)
		}
	}()

	log.Debug("reading")
	text, err := readText(f, m.opts.MaxFileSize)
	if err != nil {
		log.Warn("read failed", zap.Error(err))
		m.fail(id)
		return
	}

	m.pause(m.opts.NamingDelay)

	name := naming.Infer(f.Name, text)
	if _, ok := m.store.Update(id, func(rec models.ProcessedFile) models.ProcessedFile {
		return rec.WithName(name)
	}); !ok {
		log.Debug("record gone before naming, continuing detached")
	}

	m.pause(m.opts.ConvertDelay)

	markdown, err := m.conv.Convert(text)
	if err != nil {
		log.Warn("conversion failed", zap.Error(err))
		m.fail(id)
		return
	}

	if _, ok := m.store.Update(id, func(rec models.ProcessedFile) models.ProcessedFile {
		return rec.WithContent(markdown)
	}); ok {
		log.Info("converted",
			zap.String("markdownName", name),
			zap.Int("markdownBytes", len(markdown)),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (m *Manager) fail(id string) {
	m.store.Update(id, func(rec models.ProcessedFile) models.ProcessedFile {
		return rec.WithError()
	})
}

func (m *Manager) pause(d time.Duration) {
	if d > 0 {
		<-time.After(d)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// String is used in log lines.
func (b *Batch) String() string {
	return fmt.Sprintf("%d accepted, %d rejected", len(b.Records), len(b.Rejected))
}
