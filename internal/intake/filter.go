package intake

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// HTMLMediaType is the declared media type accepted regardless of filename.
const HTMLMediaType = "text/html"

// UnsupportedMessage is shown when a whole batch is rejected.
const UnsupportedMessage = "Only HTML files are supported"

var htmlSuffixes = []string{".html", ".htm"}

// ErrUnsupportedFileType matches every UnsupportedFileTypeError via errors.Is.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// UnsupportedFileTypeError reports a batch in which no file was accepted.
type UnsupportedFileTypeError struct {
	Names []string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("%s (rejected: %s)", UnsupportedMessage, strings.Join(e.Names, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedFileType) true.
func (e *UnsupportedFileTypeError) Is(target error) bool { return target == ErrUnsupportedFileType }

// Accepts reports whether a file enters the pipeline: its declared media
// type is text/html (parameters ignored) or its name ends in .html / .htm.
func Accepts(name, mediaType string) bool {
	if mediaType != "" {
		if mt, _, err := mime.ParseMediaType(mediaType); err == nil && mt == HTMLMediaType {
			return true
		}
	}

	lower := strings.ToLower(name)
	for _, suffix := range htmlSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Partition splits files into accepted and rejected, preserving order.
func Partition(files []File) (accepted, rejected []File) {
	for _, f := range files {
		if Accepts(f.Name, f.MediaType) {
			accepted = append(accepted, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return accepted, rejected
}
