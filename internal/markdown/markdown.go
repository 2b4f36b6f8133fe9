// Package markdown converts plain-prose spans to HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter turns markdown text into HTML.
type Converter interface {
	Convert(src string) (string, error)
}

// Goldmark is a Converter backed by goldmark with GitHub-flavoured extensions.
// Raw HTML in the source is passed through.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark creates the default converter.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (g *Goldmark) Convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(src string) (string, error)

func (f ConverterFunc) Convert(src string) (string, error) { return f(src) }
