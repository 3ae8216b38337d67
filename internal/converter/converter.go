// Package converter turns HTML documents into Markdown using a fixed
// html-to-markdown configuration.
package converter

import (
	"errors"
	"fmt"
	"strings"

	htmconverter "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// ErrConversion matches every ConversionError via errors.Is.
var ErrConversion = errors.New("conversion failed")

// ErrEmptyDocument is the cause recorded when a document yields no Markdown.
var ErrEmptyDocument = errors.New("document has no convertible content")

// ConversionError reports that the engine could not convert a document.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to parse HTML content: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConversion) true for any ConversionError.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// Converter transforms HTML text into Markdown.
type Converter interface {
	Convert(htmlText string) (string, error)
}

// droppedTags carry no document text; they and all their descendants are
// removed before rendering.
var droppedTags = []string{"script", "style", "iframe", "svg"}

// Engine is the Converter used in production. It is safe for concurrent use.
type Engine struct {
	conv *htmconverter.Converter
}

// NewEngine builds the engine with ATX headings, fenced code blocks, "*"
// emphasis, "-" bullets and "---" rules.
func NewEngine() *Engine {
	conv := htmconverter.NewConverter(
		htmconverter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
				commonmark.WithEmDelimiter("*"),
				commonmark.WithBulletListMarker("-"),
				commonmark.WithHorizontalRule("---"),
			),
		),
	)
	for _, tag := range droppedTags {
		conv.Register.TagType(tag, htmconverter.TagTypeRemove, htmconverter.PriorityEarly)
	}
	return &Engine{conv: conv}
}

// Convert renders htmlText as Markdown. Library failures, panics and empty
// output are all reported as *ConversionError.
func (e *Engine) Convert(htmlText string) (markdown string, err error) {
	defer func() {
		if r := recover(); r != nil {
			markdown = ""
			err = &ConversionError{Err: fmt.Errorf("converter panicked: %v", r)}
		}
	}()

	out, err := e.conv.ConvertString(htmlText)
	if err != nil {
		return "", &ConversionError{Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", &ConversionError{Err: ErrEmptyDocument}
	}
	return out, nil
}
