// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/format-smormat/backend/internal/intake"
	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/records"
)

// ConvertHandler accepts documents for conversion
type ConvertHandler interface {
	HandleConvert(c echo.Context) error
	HandleConvertJSON(c echo.Context) error
}

// RecordHandler exposes the record list
type RecordHandler interface {
	HandleListRecords(c echo.Context) error
	HandleListRecordsMsgpack(c echo.Context) error
	HandleGetRecord(c echo.Context) error
	HandleRecordStatusStream(c echo.Context) error
	HandlePreview(c echo.Context) error
	HandleDownload(c echo.Context) error
	HandleDeleteRecord(c echo.Context) error
	HandleClearRecords(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Intake starts pipelines for submitted files.
type Intake interface {
	Submit(files []intake.File) (*intake.Batch, error)
}

// RecordStore is the read/remove side of the record list.
type RecordStore interface {
	Get(id string) (models.ProcessedFile, bool)
	List() []models.ProcessedFile
	Len() int
	Remove(id string) bool
	Clear() int
	Subscribe() (<-chan records.Event, func())
}

var (
	_ Intake      = (*intake.Manager)(nil)
	_ RecordStore = (*records.Store)(nil)
)
