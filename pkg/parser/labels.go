package parser

import (
	"strings"

	"github.com/xplshn/pcgk/pkg/token"
)

// collectDataLabels finds quoted labels passed first to any {Pin}_ function.
// Attribute functions are skipped since their first literal names an
// attribute, and so are matches whose quote is not an opening string token.
// A call belongs to the longest pin label prefixing it, so pin In does not
// claim In_2_GetNumElements('L').
func (p *Parser) collectDataLabels(ps *ParsedSource) {
	for _, lp := range p.kw.labels {
		for _, m := range lp.re.FindAllStringSubmatchIndex(ps.Source, -1) {
			fn := ps.Source[m[2]:m[3]]
			if p.kw.IsAttributeFunction(fn) || p.kw.longerPinOwns(lp.pin, fn) {
				continue
			}
			if tok, ok := ps.TokenAt(m[4]); !ok || tok.Type != token.SingleQuotedString {
				continue
			}
			ps.DataLabelRefs = append(ps.DataLabelRefs, DataLabelRef{
				Pin:   lp.pin,
				Label: ps.Source[m[6]:m[7]],
				Range: token.Range{Begin: m[4], End: m[5]},
			})
		}
	}
}

func (kw *Keywords) longerPinOwns(pin, fn string) bool {
	for _, other := range kw.labels {
		if len(other.pin) > len(pin) && strings.HasPrefix(fn, other.pin+"_") {
			return true
		}
	}
	return false
}

// Labels returns the distinct labels referenced for pin, in first-seen order.
func (ps *ParsedSource) Labels(pin string) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, ref := range ps.DataLabelRefs {
		if ref.Pin == pin && !seen[ref.Label] {
			seen[ref.Label] = true
			labels = append(labels, ref.Label)
		}
	}
	return labels
}
