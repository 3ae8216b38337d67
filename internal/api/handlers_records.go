// handlers_records.go - Record list, preview and download handlers
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/records"
)

// statusResync bounds how long a status stream can miss a dropped event.
const statusResync = time.Second

// RecordHandlerImpl implements the RecordHandler interface
type RecordHandlerImpl struct {
	store    RecordStore
	markdown goldmark.Markdown
}

// NewRecordHandler creates a new record handler instance
func NewRecordHandler(store RecordStore) RecordHandler {
	return &RecordHandlerImpl{
		store:    store,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// HandleListRecords returns every record, newest first
func (h *RecordHandlerImpl) HandleListRecords(c echo.Context) error {
	return c.JSON(http.StatusOK, newRecordViews(h.store.List()))
}

// HandleListRecordsMsgpack returns the record list MessagePack encoded
func (h *RecordHandlerImpl) HandleListRecordsMsgpack(c echo.Context) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(newRecordViews(h.store.List())); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleGetRecord returns a single record
func (h *RecordHandlerImpl) HandleGetRecord(c echo.Context) error {
	rec, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewRecordView(rec))
}

// HandleRecordStatusStream streams a record's state via SSE until it is terminal
func (h *RecordHandlerImpl) HandleRecordStatusStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	// Subscribe before the first read so no transition falls in between.
	events, cancel := h.store.Subscribe()
	defer cancel()

	rec, ok := h.store.Get(id)
	if !ok {
		return NewNotFoundError("record", id)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	h.sendSSEData(c, NewRecordView(rec))
	if rec.Status.IsTerminal() {
		return nil
	}
	last := rec.Status

	ticker := time.NewTicker(statusResync)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case ev := <-events:
			if ev.Type == records.EventUpsert && ev.ID != id {
				continue
			}
		case <-ticker.C:
		}

		rec, ok := h.store.Get(id)
		if !ok {
			h.sendSSEError(c, "record removed")
			return nil
		}
		if rec.Status == last {
			continue
		}
		last = rec.Status

		h.sendSSEData(c, NewRecordView(rec))
		if rec.Status.IsTerminal() {
			return nil
		}
	}
}

// HandlePreview returns the start of a completed record's Markdown.
// With ?format=html the preview is also rendered to HTML.
func (h *RecordHandlerImpl) HandlePreview(c echo.Context) error {
	rec, err := h.completed(c)
	if err != nil {
		return err
	}

	text, truncated := models.Preview(rec.Content, models.PreviewLimit)
	resp := previewResponse{
		ID:        rec.ID,
		Name:      rec.MarkdownName,
		Preview:   text,
		Truncated: truncated,
	}
	if truncated {
		resp.Preview += "..."
	}

	switch format := c.QueryParam("format"); format {
	case "", "markdown":
	case "html":
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(text), &buf); err != nil {
			return NewInternalError("failed to render preview", err)
		}
		resp.HTML = buf.String()
	default:
		return NewBadRequestError(fmt.Sprintf("unknown preview format: %s", format), nil)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleDownload sends a completed record's Markdown as a file attachment
func (h *RecordHandlerImpl) HandleDownload(c echo.Context) error {
	rec, err := h.completed(c)
	if err != nil {
		return err
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": rec.MarkdownName})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return c.Blob(http.StatusOK, models.MarkdownMediaType, []byte(rec.Content))
}

// HandleDeleteRecord removes one record in any state
func (h *RecordHandlerImpl) HandleDeleteRecord(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if !h.store.Remove(id) {
		return NewNotFoundError("record", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleClearRecords removes every record
func (h *RecordHandlerImpl) HandleClearRecords(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"removed": h.store.Clear()})
}

func (h *RecordHandlerImpl) lookup(c echo.Context) (models.ProcessedFile, error) {
	id := c.Param("id")
	if id == "" {
		return models.ProcessedFile{}, NewValidationError("id")
	}

	rec, ok := h.store.Get(id)
	if !ok {
		return models.ProcessedFile{}, NewNotFoundError("record", id)
	}
	return rec, nil
}

func (h *RecordHandlerImpl) completed(c echo.Context) (models.ProcessedFile, error) {
	rec, err := h.lookup(c)
	if err != nil {
		return rec, err
	}
	if rec.Status != models.StatusCompleted {
		return rec, NewConflictError(fmt.Sprintf("record %s is %s, not %s", rec.ID, rec.Status, models.StatusCompleted))
	}
	return rec, nil
}

func (h *RecordHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *RecordHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}

type previewResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Preview   string `json:"preview"`
	Truncated bool   `json:"truncated"`
	HTML      string `json:"html,omitempty"`
}
