// Package highlight colours cooked HLSL for terminal output.
package highlight

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	Language     = "hlsl"
	DefaultStyle = "monokai"
)

type Highlighter struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// New returns a highlighter writing with the named chroma style. Unknown
// styles fall back to chroma's default. With color false the source is
// written back unchanged.
func New(style string, color bool) *Highlighter {
	lexer := lexers.Get(Language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	f := formatters.Get("terminal256")
	if !color || f == nil {
		f = formatters.NoOp
	}
	return &Highlighter{lexer: chroma.Coalesce(lexer), style: s, formatter: f}
}

func (h *Highlighter) Write(w io.Writer, source string) error {
	it, err := h.lexer.Tokenise(nil, source)
	if err != nil {
		return err
	}
	return h.formatter.Format(w, h.style, it)
}

// Styles lists the style names accepted by New.
func Styles() []string { return styles.Names() }
