package token

import "strings"

type Type int

const (
	Normal Type = iota
	Keyword
	PreProcessorKeyword
	Operator
	DoubleQuotedString
	SingleQuotedString
	Comment
	Whitespace
)

var TypeStrings = map[Type]string{
	Normal:              "Normal",
	Keyword:             "Keyword",
	PreProcessorKeyword: "PreProcessorKeyword",
	Operator:            "Operator",
	DoubleQuotedString:  "DoubleQuotedString",
	SingleQuotedString:  "SingleQuotedString",
	Comment:             "Comment",
	Whitespace:          "Whitespace",
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "Unknown"
}

// Range is a half-open byte range [Begin, End) into a source string.
type Range struct {
	Begin int
	End   int
}

func (r Range) Len() int { return r.End - r.Begin }

func (r Range) Contains(offset int) bool { return offset >= r.Begin && offset < r.End }

func (r Range) Overlaps(o Range) bool { return r.Begin < o.End && o.Begin < r.End }

type Token struct {
	Type  Type
	Range Range
}

func (t Token) Text(src string) string { return src[t.Range.Begin:t.Range.End] }

// Syntax is the class a token receives from the first tokenizing pass,
// before any parse state is applied.
type Syntax int

const (
	Literal Syntax = iota
	Symbol
)

type SyntaxToken struct {
	Kind  Syntax
	Range Range
}

// Line is one source line. Range excludes the line terminator, Break covers it
// and is empty on the last line when the source has no trailing newline.
type Line struct {
	Range  Range
	Break  Range
	Tokens []SyntaxToken
}

// Position returns the 1-based line and column of offset in src.
func Position(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := src[:offset]
	line = strings.Count(prefix, "\n") + 1
	col = offset - (strings.LastIndexByte(prefix, '\n') + 1) + 1
	return line, col
}

// LineAt returns the text of the line containing offset, without terminator.
func LineAt(src string, offset int) string {
	if offset > len(src) {
		offset = len(src)
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}
	return strings.TrimSuffix(src[start:end], "\r")
}
