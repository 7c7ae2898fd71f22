package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/xplshn/pcgk/pkg/token"
)

type parseState int

const (
	stateNone parseState = iota
	stateDoubleQuotedString
	stateSingleQuotedString
	stateSingleLineComment
	stateMultiLineComment
)

type Lexer struct {
	source   string
	keywords map[string]bool
}

// NewLexer prepares a tokenizer over source. Keywords extends the HLSL
// keyword table with domain function names so they classify as Keyword.
func NewLexer(source string, keywords []string) *Lexer {
	kw := make(map[string]bool, len(hlslKeywords)+len(keywords))
	for _, k := range hlslKeywords {
		kw[k] = true
	}
	for _, k := range keywords {
		kw[k] = true
	}
	return &Lexer{source: source, keywords: kw}
}

func Tokenize(source string, keywords []string) []token.Token {
	return NewLexer(source, keywords).Tokenize()
}

// Lines runs the syntax pass. Each line is split into Symbol tokens (operators,
// keywords, directives) and Literal runs.
func (l *Lexer) Lines() []token.Line {
	var lines []token.Line
	pos := 0
	for {
		end := strings.IndexByte(l.source[pos:], '\n')
		next := len(l.source)
		brk := token.Range{Begin: len(l.source), End: len(l.source)}
		if end >= 0 {
			end += pos
			next = end + 1
			brk = token.Range{Begin: end, End: next}
			if end > pos && l.source[end-1] == '\r' {
				end--
				brk.Begin = end
			}
		} else {
			end = len(l.source)
		}
		lines = append(lines, token.Line{
			Range:  token.Range{Begin: pos, End: end},
			Break:  brk,
			Tokens: l.tokenizeLine(pos, end),
		})
		if next >= len(l.source) {
			break
		}
		pos = next
	}
	return lines
}

func (l *Lexer) tokenizeLine(pos, end int) []token.SyntaxToken {
	var toks []token.SyntaxToken
	emit := func(kind token.Syntax, from, to int) {
		toks = append(toks, token.SyntaxToken{Kind: kind, Range: token.Range{Begin: from, End: to}})
	}
	for pos < end {
		ch := l.source[pos]
		switch {
		case ch == '#':
			n := pos + 1
			if n < end && isIdentStart(l.source[n]) {
				n = l.identEnd(n, end)
			}
			emit(token.Symbol, pos, n)
			pos = n
		case isIdentStart(ch):
			n := l.identEnd(pos, end)
			if l.keywords[l.source[pos:n]] {
				emit(token.Symbol, pos, n)
			} else {
				emit(token.Literal, pos, n)
			}
			pos = n
		case isDigit(ch):
			n := l.identEnd(pos, end)
			emit(token.Literal, pos, n)
			pos = n
		case isSpace(ch):
			n := pos + 1
			for n < end && isSpace(l.source[n]) {
				n++
			}
			emit(token.Literal, pos, n)
			pos = n
		default:
			if op := l.matchOperator(pos, end); op > 0 {
				emit(token.Symbol, pos, pos+op)
				pos += op
				continue
			}
			_, size := utf8.DecodeRuneInString(l.source[pos:end])
			emit(token.Literal, pos, pos+size)
			pos += size
		}
	}
	return toks
}

func (l *Lexer) matchOperator(pos, end int) int {
	rest := l.source[pos:end]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return len(op)
		}
	}
	return 0
}

func (l *Lexer) identEnd(pos, end int) int {
	for pos < end && isIdentChar(l.source[pos]) {
		pos++
	}
	return pos
}

// Tokenize classifies the syntax pass output with the string/comment state
// machine. Only the multi-line comment state survives a line break.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	state := stateNone
	for _, line := range l.Lines() {
		for _, st := range line.Tokens {
			var typ token.Type
			typ, state = l.classify(st, state)
			toks = append(toks, token.Token{Type: typ, Range: st.Range})
		}
		if state != stateMultiLineComment {
			state = stateNone
		}
		if line.Break.Len() > 0 {
			toks = append(toks, token.Token{Type: token.Whitespace, Range: line.Break})
		}
	}
	return toks
}

func (l *Lexer) classify(st token.SyntaxToken, state parseState) (token.Type, parseState) {
	text := l.source[st.Range.Begin:st.Range.End]
	if strings.TrimSpace(text) == "" {
		return token.Whitespace, state
	}

	if st.Kind == token.Symbol {
		switch {
		case text == "\"" && state == stateNone:
			return token.DoubleQuotedString, stateDoubleQuotedString
		case text == "\"" && state == stateDoubleQuotedString:
			return token.Normal, stateNone
		case text == "'" && state == stateNone:
			return token.SingleQuotedString, stateSingleQuotedString
		case text == "'" && state == stateSingleQuotedString:
			return token.Normal, stateNone
		case text[0] == '#' && state == stateNone:
			return token.PreProcessorKeyword, state
		case text == "//" && state == stateNone:
			return token.Comment, stateSingleLineComment
		case text == "/*" && state == stateNone:
			return token.Comment, stateMultiLineComment
		case text == "*/" && state == stateMultiLineComment:
			return token.Comment, stateNone
		case state == stateNone && isIdentStart(text[0]):
			return token.Keyword, state
		case state == stateNone:
			return token.Operator, state
		}
	}

	// Literals, and symbols that did not trigger a transition, take the class
	// of the region they sit in.
	switch state {
	case stateDoubleQuotedString:
		return token.DoubleQuotedString, state
	case stateSingleQuotedString:
		return token.SingleQuotedString, state
	case stateSingleLineComment, stateMultiLineComment:
		return token.Comment, state
	}
	return token.Normal, state
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isSpace(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f' || ch == '\r' }
