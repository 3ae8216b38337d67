// handlers_convert.go - Document submission handlers
package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/format-smormat/backend/internal/intake"
)

// Multipart field names accepted for uploads.
const (
	filesField = "files"
	fileField  = "file"
)

// ConvertHandlerImpl implements the ConvertHandler interface
type ConvertHandlerImpl struct {
	intake Intake
	logger *zap.Logger
}

// NewConvertHandler creates a new convert handler instance
func NewConvertHandler(in Intake, logger *zap.Logger) ConvertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConvertHandlerImpl{
		intake: in,
		logger: logger.Named("convert"),
	}
}

// HandleConvert accepts one or more multipart file parts and starts a
// pipeline for every HTML document among them.
func (h *ConvertHandlerImpl) HandleConvert(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart/form-data", err)
	}
	defer form.RemoveAll()

	headers := make([]*multipart.FileHeader, 0, len(form.File[filesField])+len(form.File[fileField]))
	headers = append(headers, form.File[filesField]...)
	headers = append(headers, form.File[fileField]...)
	if len(headers) == 0 {
		return NewValidationError(filesField)
	}

	files := make([]intake.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, bufferPart(fh))
	}

	return h.submit(c, files)
}

// HandleConvertJSON accepts base64 encoded documents in a JSON body
func (h *ConvertHandlerImpl) HandleConvertJSON(c echo.Context) error {
	var req convertJSONRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	files := make([]intake.File, 0, len(req.Files))
	for i, f := range req.Files {
		decoded, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return NewBadRequestError(fmt.Sprintf("invalid base64 data in files[%d]", i), err)
		}
		files = append(files, intake.BytesFile(f.Name, f.MediaType, decoded))
	}

	return h.submit(c, files)
}

func (h *ConvertHandlerImpl) submit(c echo.Context, files []intake.File) error {
	batch, err := h.intake.Submit(files)
	if err != nil {
		var unsupported *intake.UnsupportedFileTypeError
		if errors.As(err, &unsupported) {
			return NewUnsupportedFileTypeError(unsupported)
		}
		return NewInternalError("failed to start conversion", err)
	}

	h.logger.Debug("batch submitted", zap.Stringer("batch", batch))

	return c.JSON(http.StatusAccepted, convertResponse{
		Records:  newRecordViews(batch.Records),
		Rejected: batch.Rejected,
	})
}

// bufferPart reads an uploaded part into memory. Multipart temp files are
// removed when the request ends, so the pipeline cannot open them later.
// A read failure is handed to the pipeline, which records it as ERROR.
func bufferPart(fh *multipart.FileHeader) intake.File {
	data, readErr := readPart(fh)
	return intake.File{
		Name:      fh.Filename,
		Size:      fh.Size,
		MediaType: fh.Header.Get(echo.HeaderContentType),
		Open: func() (io.ReadCloser, error) {
			if readErr != nil {
				return nil, readErr
			}
			return intake.BytesFile(fh.Filename, "", data).Open()
		},
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// Request/Response types

type convertJSONRequest struct {
	Files []jsonFile `json:"files"`
}

type jsonFile struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      string `json:"data"` // Base64-encoded content
}

func (r *convertJSONRequest) validate() error {
	if len(r.Files) == 0 {
		return NewValidationError("files")
	}
	for i, f := range r.Files {
		if f.Name == "" {
			return NewValidationError(fmt.Sprintf("files[%d].name", i))
		}
	}
	return nil
}

type convertResponse struct {
	Records  []RecordView `json:"records"`
	Rejected []string     `json:"rejected"`
}
