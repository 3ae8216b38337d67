package intake

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrTooLarge is the ReadError cause for files above the configured limit.
var ErrTooLarge = errors.New("file exceeds the maximum size")

// ErrRead matches every ReadError via errors.Is.
var ErrRead = errors.New("read failed")

// ReadError reports that a file's bytes could not be read or decoded as text.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRead) true.
func (e *ReadError) Is(target error) bool { return target == ErrRead }

// readText opens f and decodes its content to UTF-8 text. The encoding is
// taken from a byte order mark, the declared media type charset or a
// <meta charset> declaration, defaulting to UTF-8 for valid UTF-8 input.
func readText(f File, limit int64) (string, error) {
	if f.Open == nil {
		return "", &ReadError{Name: f.Name, Err: errors.New("no content")}
	}

	rc, err := f.Open()
	if err != nil {
		return "", &ReadError{Name: f.Name, Err: err}
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", &ReadError{Name: f.Name, Err: err}
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", &ReadError{Name: f.Name, Err: ErrTooLarge}
	}

	enc, _, _ := charset.DetermineEncoding(data, f.MediaType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", &ReadError{Name: f.Name, Err: fmt.Errorf("decoding text: %w", err)}
	}

	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}
