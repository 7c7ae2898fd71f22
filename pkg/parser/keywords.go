package parser

import (
	"regexp"
	"sort"

	"github.com/xplshn/pcgk/pkg/kernel"
)

type Func int

const (
	Get Func = iota
	Set
)

func (f Func) String() string {
	if f == Set {
		return "Set"
	}
	return "Get"
}

// Arity is the number of arguments that follow the attribute name: data and
// element index for Get, plus the value for Set.
func (f Func) Arity() int {
	if f == Set {
		return 3
	}
	return 2
}

type attributeKeyword struct {
	pin  string
	fn   Func
	typ  kernel.AttributeType
	name string
}

type copyKeyword struct {
	target string
	source string
}

type labelPattern struct {
	pin string
	re  *regexp.Regexp
}

// Keywords holds the domain function names of one kernel, each mapped back to
// the pin, function and type it was built from.
type Keywords struct {
	attribute   map[string]attributeKeyword
	copyElement map[string]copyKeyword
	initialize  map[string]string
	outputs     []string
	labels      []labelPattern
}

func NewKeywords(s *kernel.Settings) *Keywords {
	kw := &Keywords{
		attribute:   make(map[string]attributeKeyword),
		copyElement: make(map[string]copyKeyword),
		initialize:  make(map[string]string),
	}

	for _, in := range s.InputPins {
		if in.AllowedTypes.Has(kernel.PointOrParam) {
			kw.addAttributeKeywords(in.Label, Get)
		}
	}
	for _, out := range s.OutputPins {
		kw.outputs = append(kw.outputs, out.Label)
		if out.AllowedTypes.Has(kernel.PointOrParam) {
			kw.addAttributeKeywords(out.Label, Set)
			kw.initialize[out.Label+"_Initialize"] = out.Label
			for _, in := range s.InputPins {
				if in.AllowedTypes == out.AllowedTypes {
					kw.copyElement[out.Label+"_CopyElementFrom_"+in.Label] = copyKeyword{target: out.Label, source: in.Label}
				}
			}
		}
		if out.AllowedTypes.Has(kernel.BaseTexture) {
			kw.initialize[out.Label+"_Store"] = out.Label
		}
	}

	for _, pin := range append(s.InputLabels(), s.OutputLabels()...) {
		kw.labels = append(kw.labels, labelPattern{pin: pin, re: dataLabelPattern(pin)})
	}
	return kw
}

func (kw *Keywords) addAttributeKeywords(pin string, fn Func) {
	for _, t := range kernel.AttributeTypes() {
		name := pin + "_" + fn.String() + t.String()
		kw.attribute[name] = attributeKeyword{pin: pin, fn: fn, typ: t, name: name}
	}
}

func dataLabelPattern(pin string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^A-Za-z0-9_])(` + regexp.QuoteMeta(pin) + `_[A-Za-z0-9_]*)\s*\(\s*('([A-Za-z0-9_]+)')`)
}

func (kw *Keywords) IsAttributeFunction(name string) bool {
	_, ok := kw.attribute[name]
	return ok
}

// List returns every keyword, sorted for a stable lexer table.
func (kw *Keywords) List() []string {
	list := make([]string, 0, len(kw.attribute)+len(kw.copyElement)+len(kw.initialize))
	for k := range kw.attribute {
		list = append(list, k)
	}
	for k := range kw.copyElement {
		list = append(list, k)
	}
	for k := range kw.initialize {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
