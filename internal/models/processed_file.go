package models

import "time"

// PlaceholderName is shown as the markdown name until filename inference finishes.
const PlaceholderName = "Analysing..."

// FailureMessage is the only error message ever exposed on a record.
const FailureMessage = "Failed to process file"

// MarkdownMediaType is the media type of every download.
const MarkdownMediaType = "text/markdown; charset=utf-8"

// ProcessedFile is one uploaded document and its conversion result.
// Values are replaced as a whole on every update; never mutate a record
// obtained from the store.
type ProcessedFile struct {
	ID              string           `json:"id"`
	OriginalName    string           `json:"originalName"`
	MarkdownName    string           `json:"markdownName"`
	Content         string           `json:"content,omitempty"`
	OriginalSize    int64            `json:"originalSize"`
	SourceMediaType string           `json:"sourceMediaType,omitempty"`
	Status          ConversionStatus `json:"status"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	Timestamp       time.Time        `json:"-"`
}

// NewProcessedFile creates a record in READING status.
func NewProcessedFile(id, originalName string, size int64, now time.Time) ProcessedFile {
	return ProcessedFile{
		ID:           id,
		OriginalName: originalName,
		MarkdownName: PlaceholderName,
		OriginalSize: size,
		Status:       StatusReading,
		Timestamp:    now,
	}
}

// WithName returns a copy advanced to PROCESSING under the inferred name.
func (f ProcessedFile) WithName(markdownName string) ProcessedFile {
	f.MarkdownName = markdownName
	f.Status = StatusProcessing
	return f
}

// WithContent returns a completed copy holding the converted Markdown.
func (f ProcessedFile) WithContent(content string) ProcessedFile {
	f.Content = content
	f.Status = StatusCompleted
	f.ErrorMessage = ""
	return f
}

// WithError returns a failed copy. Content is always discarded.
func (f ProcessedFile) WithError() ProcessedFile {
	f.Content = ""
	f.Status = StatusError
	f.ErrorMessage = FailureMessage
	return f
}

// DisplayName is the original name while the file is still being read,
// and the inferred markdown name afterwards.
func (f ProcessedFile) DisplayName() string {
	if f.Status == StatusReading {
		return f.OriginalName
	}
	return f.MarkdownName
}

// TimestampMs returns the creation time in unix milliseconds.
func (f ProcessedFile) TimestampMs() int64 {
	return f.Timestamp.UnixMilli()
}
