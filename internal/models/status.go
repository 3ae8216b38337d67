// Package models contains domain types for the HTML to Markdown converter.
package models

// ConversionStatus represents the status of a processed file.
type ConversionStatus string

const (
	StatusReading    ConversionStatus = "READING"
	StatusProcessing ConversionStatus = "PROCESSING"
	StatusCompleted  ConversionStatus = "COMPLETED"
	StatusError      ConversionStatus = "ERROR"
)

// IsTerminal reports whether no further transition can leave s.
func (s ConversionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanAdvanceTo reports whether a record in status s may move to next.
// Staying in the same non-terminal status is allowed so a pipeline can
// publish intermediate field changes.
func (s ConversionStatus) CanAdvanceTo(next ConversionStatus) bool {
	switch s {
	case StatusReading:
		return next == StatusReading || next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusError
	default:
		return false
	}
}

// Label returns the human readable status shown next to a record.
func (s ConversionStatus) Label() string {
	switch s {
	case StatusReading:
		return "Reading & Naming..."
	case StatusProcessing:
		return "Converting..."
	case StatusCompleted:
		return "Markdown"
	case StatusError:
		return "Error"
	default:
		return "Waiting"
	}
}
