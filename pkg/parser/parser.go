package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/lexer"
	"github.com/xplshn/pcgk/pkg/token"
)

type AttributeFunction struct {
	Pin  string
	Func Func
	Type kernel.AttributeType
	Name string
	// NameRange covers the quoted name, quotes included.
	NameRange token.Range
	Begin     int
}

func (f AttributeFunction) Key() kernel.AttributeKey {
	return kernel.AttributeKey{Name: f.Name, Type: f.Type}
}

type CopyElementFunction struct {
	Target string
	Source string
	Range  token.Range
}

type DataLabelRef struct {
	Pin   string
	Label string
	// Range covers the quoted label, quotes included.
	Range token.Range
}

type ParsedSource struct {
	File   *diag.SourceFile
	Source string
	Tokens []token.Token

	AttributeFunctions    []AttributeFunction
	CopyElementFunctions  []CopyElementFunction
	InitializedOutputPins map[string]bool
	AttributeKeys         []kernel.AttributeKey
	DataLabelRefs         []DataLabelRef
	Directives            []string
}

func (ps *ParsedSource) addKey(key kernel.AttributeKey) {
	for _, k := range ps.AttributeKeys {
		if k == key {
			return
		}
	}
	ps.AttributeKeys = append(ps.AttributeKeys, key)
}

// TokenAt returns the token covering offset.
func (ps *ParsedSource) TokenAt(offset int) (token.Token, bool) {
	i := sort.Search(len(ps.Tokens), func(i int) bool { return ps.Tokens[i].Range.End > offset })
	if i < len(ps.Tokens) && ps.Tokens[i].Range.Contains(offset) {
		return ps.Tokens[i], true
	}
	return token.Token{}, false
}

type Parser struct {
	kw     *Keywords
	cfg    *config.Config
	log    *diag.Log
	kernel string
}

func NewParser(kw *Keywords, kernelName string, cfg *config.Config, log *diag.Log) *Parser {
	return &Parser{kw: kw, cfg: cfg, log: log, kernel: kernelName}
}

func (p *Parser) Parse(name, source string) *ParsedSource {
	ps := &ParsedSource{
		File:                  &diag.SourceFile{Name: name, Text: source},
		Source:                source,
		Tokens:                lexer.Tokenize(source, p.kw.List()),
		InitializedOutputPins: make(map[string]bool),
	}
	p.collectDirectives(ps)
	p.matchFunctions(ps)

	if p.cfg.IsFeatureEnabled(config.FeatSetterScan) {
		for _, out := range p.kw.outputs {
			if strings.Contains(source, out+"_Set") {
				ps.InitializedOutputPins[out] = true
			}
		}
	}
	if p.cfg.IsFeatureEnabled(config.FeatDataLabels) {
		p.collectDataLabels(ps)
	}
	return ps
}

type callStage int

const (
	awaitParen callStage = iota
	awaitName
	inArgs
)

type pendingCall struct {
	kw        attributeKeyword
	keyword   token.Range
	stage     callStage
	depth     int
	name      string
	nameRange token.Range
	commas    int
}

// matchFunctions walks the token stream once. Attribute calls are kept on a
// stack so a Get nested in a Set resolves independently of its parent.
func (p *Parser) matchFunctions(ps *ParsedSource) {
	src := ps.Source
	var stack []*pendingCall
	depth, quoteStart := 0, -1

	top := func() *pendingCall {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	pop := func() *pendingCall {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return c
	}

	for _, tok := range ps.Tokens {
		text := tok.Text(src)
		switch tok.Type {
		case token.Whitespace:
			if strings.ContainsRune(text, '\n') {
				quoteStart = -1
			}
			continue
		case token.Comment, token.DoubleQuotedString:
			continue
		case token.SingleQuotedString:
			if quoteStart < 0 && text == "'" {
				quoteStart = tok.Range.Begin
			}
			continue
		}

		if tok.Type == token.Normal && text == "'" && quoteStart >= 0 {
			lit := token.Range{Begin: quoteStart, End: tok.Range.End}
			name := src[quoteStart+1 : tok.Range.Begin]
			quoteStart = -1
			if c := top(); c != nil && c.stage == awaitName && c.depth == depth {
				c.name, c.nameRange, c.stage = name, lit, inArgs
			}
			continue
		}

		if c := top(); c != nil && c.stage == awaitParen && !(tok.Type == token.Operator && text == "(") {
			p.dropCall(ps, pop(), "expected '(' after '%s'")
		}
		if c := top(); c != nil && c.stage == awaitName && c.depth == depth {
			p.dropCall(ps, pop(), "the first argument of '%s' must be a quoted attribute name")
		}

		c := top()
		switch {
		case tok.Type == token.Keyword:
			p.matchKeyword(ps, tok, text, &stack)
		case tok.Type == token.Operator && text == "(":
			depth++
			if c != nil && c.stage == awaitParen {
				c.stage, c.depth = awaitName, depth
			}
		case tok.Type == token.Operator && text == ")":
			if c != nil && c.stage == inArgs && c.depth == depth {
				pop()
				if c.commas == c.kw.fn.Arity() {
					p.finalize(ps, c)
				} else {
					p.dropCall(ps, c, "'%s' expects the attribute name followed by the right number of arguments")
				}
			}
			depth = max(depth-1, 0)
		case tok.Type == token.Normal && text == ",":
			if c != nil && c.stage == inArgs && c.depth == depth {
				c.commas++
				if c.commas > c.kw.fn.Arity() {
					p.dropCall(ps, pop(), "too many arguments to '%s'")
				}
			}
		}
	}

	for len(stack) > 0 {
		p.dropCall(ps, pop(), "unterminated call to '%s'")
	}
}

func (p *Parser) matchKeyword(ps *ParsedSource, tok token.Token, text string, stack *[]*pendingCall) {
	if kw, ok := p.kw.attribute[text]; ok {
		*stack = append(*stack, &pendingCall{kw: kw, keyword: tok.Range})
		if kw.fn == Set {
			ps.InitializedOutputPins[kw.pin] = true
		}
		return
	}
	if ck, ok := p.kw.copyElement[text]; ok {
		ps.CopyElementFunctions = append(ps.CopyElementFunctions, CopyElementFunction{
			Target: ck.target, Source: ck.source, Range: tok.Range,
		})
		ps.InitializedOutputPins[ck.target] = true
		return
	}
	if pin, ok := p.kw.initialize[text]; ok {
		ps.InitializedOutputPins[pin] = true
	}
}

func (p *Parser) finalize(ps *ParsedSource, c *pendingCall) {
	switch {
	case c.kw.pin == "" || c.name == "":
		p.log.ErrorAt(p.kernel, ps.File, c.keyword, "'%s' is missing its attribute name", c.kw.name)
		return
	case c.kw.typ == kernel.AttrInvalid:
		p.log.ErrorAt(p.kernel, ps.File, c.keyword, "'%s' does not name a valid attribute type", c.kw.name)
		return
	case !kernel.ValidAttributeName(c.name, p.cfg.IsFeatureEnabled(config.FeatStrictNames)):
		p.log.ErrorAt(p.kernel, ps.File, c.nameRange, "invalid attribute name '%s' in call to '%s'", c.name, c.kw.name)
		return
	}
	fn := AttributeFunction{
		Pin:       c.kw.pin,
		Func:      c.kw.fn,
		Type:      c.kw.typ,
		Name:      c.name,
		NameRange: c.nameRange,
		Begin:     c.keyword.Begin,
	}
	ps.AttributeFunctions = append(ps.AttributeFunctions, fn)
	ps.addKey(fn.Key())
}

func (p *Parser) dropCall(ps *ParsedSource, c *pendingCall, format string) {
	p.log.Warn(p.cfg, config.WarnMalformedCall, p.kernel, ps.File, c.keyword, format, c.kw.name)
}

var directiveRe = regexp.MustCompile(`(?m)//\s*\[pcg\]:([^\r\n]*)`)

func (p *Parser) collectDirectives(ps *ParsedSource) {
	ps.Directives = directives(ps)
}

func directives(ps *ParsedSource) []string {
	var out []string
	for _, m := range directiveRe.FindAllStringSubmatchIndex(ps.Source, -1) {
		if tok, ok := ps.TokenAt(m[0]); !ok || tok.Type != token.Comment {
			continue
		}
		if d := strings.TrimSpace(ps.Source[m[2]:m[3]]); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// ScanDirectives returns the flag strings of every `// [pcg]:` comment in
// source, in order, without matching any pin functions.
func ScanDirectives(source string) []string {
	if !strings.Contains(source, "[pcg]:") {
		return nil
	}
	return directives(&ParsedSource{Source: source, Tokens: lexer.Tokenize(source, nil)})
}
