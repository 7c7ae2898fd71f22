package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/xplshn/pcgk/pkg/token"
)

// Reporter prints entries in the "file:line:col: severity: message" form,
// followed by the source line and a caret under the span.
type Reporter struct {
	w       io.Writer
	out     *termenv.Output
	verbose bool
}

func NewReporter(w io.Writer, verbose bool, opts ...termenv.OutputOption) *Reporter {
	return &Reporter{w: w, out: termenv.NewOutput(w, opts...), verbose: verbose}
}

func (r *Reporter) severity(s Severity) string {
	style := r.out.String(s.String() + ":")
	switch s {
	case Error:
		style = style.Foreground(r.out.Color("1")).Bold()
	case Warning:
		style = style.Foreground(r.out.Color("5")).Bold()
	default:
		style = style.Foreground(r.out.Color("6"))
	}
	return style.String()
}

func (r *Reporter) Report(e Entry) {
	if e.Severity == Verbose && !r.verbose {
		return
	}
	var sb strings.Builder
	switch {
	case e.Source != nil:
		sb.WriteString(r.out.String(e.Location() + ":").Bold().String())
		sb.WriteByte(' ')
	case e.Kernel != "":
		sb.WriteString(r.out.String(e.Kernel + ":").Bold().String())
		sb.WriteByte(' ')
	}
	sb.WriteString(r.severity(e.Severity))
	sb.WriteByte(' ')
	sb.WriteString(e.Message)
	sb.WriteByte('\n')
	if e.Source != nil {
		r.writeSourceLine(&sb, e.Source.Text, e.Span)
	}
	io.WriteString(r.w, sb.String())
}

func (r *Reporter) ReportAll(entries []Entry) {
	for _, e := range entries {
		r.Report(e)
	}
}

func (r *Reporter) writeSourceLine(sb *strings.Builder, src string, span token.Range) {
	line, col := token.Position(src, span.Begin)
	text := token.LineAt(src, span.Begin)
	fmt.Fprintf(sb, " %4d | %s\n", line, strings.ReplaceAll(text, "\t", " "))

	width := max(span.Len(), 1)
	if rest := len(text) - (col - 1); width > rest {
		width = max(rest, 1)
	}
	caret := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(sb, "      | %s%s\n", strings.Repeat(" ", col-1), r.out.String(caret).Foreground(r.out.Color("2")).String())
}

// Summary is the one-line tally printed after a compile.
func Summary(l *Log) string {
	errs, warns := l.Count(Error), l.Count(Warning)
	return fmt.Sprintf("%d %s, %d %s", errs, plural(errs, "error"), warns, plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
