package diag

import (
	"fmt"

	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/token"
)

type Severity int

const (
	Verbose Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Verbose:
		return "verbose"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SourceFile is a named shader source. Entries point into it so the reporter
// can print the offending line.
type SourceFile struct {
	Name string
	Text string
}

type Entry struct {
	Severity Severity    `json:"severity"`
	Kernel   string      `json:"kernel,omitempty"`
	Message  string      `json:"message"`
	Source   *SourceFile `json:"-"`
	Span     token.Range `json:"-"`
}

// Location is "name:line:col" for entries tied to a source, or "" otherwise.
func (e Entry) Location() string {
	if e.Source == nil {
		return ""
	}
	line, col := token.Position(e.Source.Text, e.Span.Begin)
	return fmt.Sprintf("%s:%d:%d", e.Source.Name, line, col)
}

// Log collects entries for one compilation. Nothing in the pipeline exits on
// an error; callers decide from the returned status.
type Log struct {
	entries []Entry
}

func NewLog() *Log { return &Log{} }

func (l *Log) Add(e Entry) { l.entries = append(l.entries, e) }

func (l *Log) Errorf(kernel, format string, args ...any) {
	l.Add(Entry{Severity: Error, Kernel: kernel, Message: fmt.Sprintf(format, args...)})
}

func (l *Log) Warnf(kernel, format string, args ...any) {
	l.Add(Entry{Severity: Warning, Kernel: kernel, Message: fmt.Sprintf(format, args...)})
}

func (l *Log) Verbosef(kernel, format string, args ...any) {
	l.Add(Entry{Severity: Verbose, Kernel: kernel, Message: fmt.Sprintf(format, args...)})
}

// ErrorAt records an error pointing at span inside src.
func (l *Log) ErrorAt(kernel string, src *SourceFile, span token.Range, format string, args ...any) {
	l.Add(Entry{Severity: Error, Kernel: kernel, Message: fmt.Sprintf(format, args...), Source: src, Span: span})
}

// Warn records a warning when wt is enabled in cfg. The warning's flag name is
// appended so users know how to silence it.
func (l *Log) Warn(cfg *config.Config, wt config.Warning, kernel string, src *SourceFile, span token.Range, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	msg := fmt.Sprintf(format, args...) + fmt.Sprintf(" [-W%s]", cfg.WarningName(wt))
	l.Add(Entry{Severity: Warning, Kernel: kernel, Message: msg, Source: src, Span: span})
}

func (l *Log) Entries() []Entry { return l.entries }

func (l *Log) Len() int { return len(l.entries) }

func (l *Log) Count(s Severity) int {
	n := 0
	for _, e := range l.entries {
		if e.Severity == s {
			n++
		}
	}
	return n
}

func (l *Log) HasErrors() bool { return l.Count(Error) > 0 }

// ForKernel returns the entries recorded against one kernel.
func (l *Log) ForKernel(kernel string) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Kernel == kernel {
			out = append(out, e)
		}
	}
	return out
}

// Since returns the entries added after the log held n entries.
func (l *Log) Since(n int) []Entry {
	if n >= len(l.entries) {
		return nil
	}
	return l.entries[n:]
}

func (l *Log) Merge(o *Log) {
	if o != nil {
		l.entries = append(l.entries, o.entries...)
	}
}
