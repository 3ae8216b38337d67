// view.go - JSON/msgpack shape of a record as shown in a file list
package api

import "github.com/format-smormat/backend/internal/models"

// RecordView is a record plus the derived display fields.
type RecordView struct {
	ID           string                  `json:"id"`
	OriginalName string                  `json:"originalName"`
	MarkdownName string                  `json:"markdownName"`
	DisplayName  string                  `json:"displayName"`
	Content      string                  `json:"content,omitempty"`
	OriginalSize int64                   `json:"originalSize"`
	SizeLabel    string                  `json:"sizeLabel"`
	Status       models.ConversionStatus `json:"status"`
	StatusLabel  string                  `json:"statusLabel"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	Preview      string                  `json:"preview,omitempty"`
	Truncated    bool                    `json:"truncated,omitempty"`
	Timestamp    int64                   `json:"timestamp"`
}

// NewRecordView derives the display fields of rec.
func NewRecordView(rec models.ProcessedFile) RecordView {
	v := RecordView{
		ID:           rec.ID,
		OriginalName: rec.OriginalName,
		MarkdownName: rec.MarkdownName,
		DisplayName:  rec.DisplayName(),
		Content:      rec.Content,
		OriginalSize: rec.OriginalSize,
		SizeLabel:    models.FormatSize(rec.OriginalSize),
		Status:       rec.Status,
		StatusLabel:  rec.Status.Label(),
		ErrorMessage: rec.ErrorMessage,
		Timestamp:    rec.TimestampMs(),
	}
	if rec.Status == models.StatusCompleted {
		v.Preview, v.Truncated = models.Preview(rec.Content, models.PreviewLimit)
		if v.Truncated {
			v.Preview += "..."
		}
	}
	return v
}

func newRecordViews(recs []models.ProcessedFile) []RecordView {
	views := make([]RecordView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, NewRecordView(rec))
	}
	return views
}
