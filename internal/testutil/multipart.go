package testutil

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
)

// UploadPart is one file in a multipart upload body.
type UploadPart struct {
	Name        string
	ContentType string
	Data        []byte
}

// MultipartBody builds a multipart/form-data body with every part under
// field and returns it with its Content-Type header value.
func MultipartBody(t *testing.T, field string, parts ...UploadPart) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, p.Name))
		ct := p.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("creating part %s: %v", p.Name, err)
		}
		if _, err := part.Write(p.Data); err != nil {
			t.Fatalf("writing part %s: %v", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}
