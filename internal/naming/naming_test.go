package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name         string
		originalName string
		html         string
		want         string
	}{
		{
			name:         "title with punctuation",
			originalName: "report.html",
			html:         `<html><head><title>My Report!!</title></head><body><h1>Hi</h1><script>evil()</script></body></html>`,
			want:         "My Report.md",
		},
		{
			name:         "no title falls back to stem",
			originalName: "notes.html",
			html:         `<html><body><p>text</p></body></html>`,
			want:         "notes.md",
		},
		{
			name:         "title sanitizes to empty",
			originalName: "page.html",
			html:         `<title>???</title>`,
			want:         "untitled.md",
		},
		{
			name:         "blank title falls back to stem",
			originalName: "draft.htm",
			html:         "<title>   \n\t </title><p>x</p>",
			want:         "draft.md",
		},
		{
			name:         "only the last extension is stripped",
			originalName: "archive.v2.html",
			html:         "",
			want:         "archive.v2.md",
		},
		{
			name:         "name without extension is kept",
			originalName: "README",
			html:         "<p>no title</p>",
			want:         "README.md",
		},
		{
			name:         "dot file stem is empty",
			originalName: ".html",
			html:         "",
			want:         "untitled.md",
		},
		{
			name:         "first title wins",
			originalName: "x.html",
			html:         `<title>First</title><svg><title>Second</title></svg>`,
			want:         "First.md",
		},
		{
			name:         "entities are decoded before sanitizing",
			originalName: "x.html",
			html:         `<title>Tom &amp; Jerry (2024)</title>`,
			want:         "Tom Jerry (2024).md",
		},
		{
			name:         "non ascii and control whitespace are removed",
			originalName: "x.html",
			html:         "<title>Café   Über\tmenu_v1.0</title>",
			want:         "Caf bermenu_v1.0.md",
		},
		{
			name:         "malformed html still yields a title",
			originalName: "broken.html",
			html:         `<html><head><title>Broken <b>page</title><body><div><p>unclosed`,
			want:         "Broken bpage.md",
		},
		{
			name:         "stem gets sanitized too",
			originalName: "weird*name?.html",
			html:         "",
			want:         "weirdname.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Infer(tt.originalName, tt.html))
		})
	}
}

func TestSanitize(t *testing.T) {
	inputs := []string{
		"My Report!!",
		"  leading and trailing  ",
		"tabs\tand\nnewlines",
		"a  -  b",
		"ünïcödé",
		"(keep) [drop] {drop}",
		"",
		"???",
		"file.name_with-all (chars)",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Sanitize(in)
			assert.Equal(t, once, Sanitize(once), "sanitize must be idempotent")
			assert.NotContains(t, once, "  ")
			for _, r := range once {
				assert.True(t, r < 128 && allowed(byte(r)), "unexpected rune %q", r)
			}
		})
	}

	assert.Equal(t, "My Report", Sanitize("My Report!!"))
	assert.Equal(t, "tabsandnewlines", Sanitize("tabs\tand\nnewlines"))
	assert.Equal(t, "a - b", Sanitize("a  -  b"))
	assert.Equal(t, "(keep) drop drop", Sanitize("(keep) [drop] {drop}"))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "notes", Stem("notes.html"))
	assert.Equal(t, "a.b", Stem("a.b.htm"))
	assert.Equal(t, "plain", Stem("plain"))
	assert.Equal(t, "", Stem(".html"))
}

func TestTitle(t *testing.T) {
	title, ok := Title(`<head><title> Spaced Title </title></head>`)
	assert.True(t, ok)
	assert.Equal(t, "Spaced Title", title)

	_, ok = Title(`<body>nothing</body>`)
	assert.False(t, ok)
}
