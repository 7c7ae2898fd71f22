package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
)

type Kernel interface {
	Name() string
	Settings() *kernel.Settings
	// ParsedSources holds the kernel body first, then every additional
	// source in emission order.
	ParsedSources() []*parser.ParsedSource
	EntryPoint() string
	ShaderPath() string
	DataLabelID(pin, label string) (int, bool)
}

type AttributeIDs interface {
	ID(key kernel.AttributeKey) (int, bool)
}

// Context carries what code generation needs for one compute graph. It is
// created per compile and never shared between graphs.
type Context struct {
	cfg   *config.Config
	attrs AttributeIDs
	log   *diag.Log
}

func NewContext(cfg *config.Config, attrs AttributeIDs, log *diag.Log) *Context {
	return &Context{cfg: cfg, attrs: attrs, log: log}
}

// ProcessSource resolves attribute names and data labels in one parsed
// source, then rewrites copy element calls into the copy macro.
func (ctx *Context) ProcessSource(k Kernel, ps *parser.ParsedSource) string {
	var reps []Replacement

	for _, fn := range ps.AttributeFunctions {
		id, ok := ctx.attrs.ID(fn.Key())
		if !ok {
			ctx.log.ErrorAt(k.Name(), ps.File, fn.NameRange, "attribute '%s' has no ID in the attribute table", fn.Key())
		}
		reps = append(reps, Replacement{Begin: fn.NameRange.Begin, End: fn.NameRange.End, Text: strconv.Itoa(id)})
	}

	for _, ref := range ps.DataLabelRefs {
		id, ok := k.DataLabelID(ref.Pin, ref.Label)
		if !ok {
			ctx.log.ErrorAt(k.Name(), ps.File, ref.Range, "data label '%s' on pin '%s' was not collected", ref.Label, ref.Pin)
			continue
		}
		reps = append(reps, Replacement{
			Begin: ref.Range.Begin,
			End:   ref.Range.End,
			Text:  fmt.Sprintf("%s_GetDataIndexFromIdInternal(/*DataId=*/%du)", ref.Pin, id),
		})
	}

	out, err := Apply(ps.Source, reps)
	if err != nil {
		ctx.log.Errorf(k.Name(), "cannot rewrite '%s': %v", ps.File.Name, err)
	}

	out = strings.ReplaceAll(out, "\r", "")

	for _, fn := range ps.CopyElementFunctions {
		out = copyElementMacro(out, fn.Target, fn.Source)
	}
	return out
}

// AdditionalSources processes every source after the kernel body, each
// followed by a blank line.
func (ctx *Context) AdditionalSources(k Kernel) string {
	var sb strings.Builder
	for _, ps := range k.ParsedSources()[1:] {
		sb.WriteString(ctx.ProcessSource(k, ps))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Cook assembles the final compute shader for k.
func (ctx *Context) Cook(k Kernel) string {
	s := k.Settings()
	sources := k.ParsedSources()
	body := ""
	if len(sources) > 0 {
		body = ctx.ProcessSource(k, sources[0])
	}
	additional := ""
	if len(sources) > 1 {
		additional = ctx.AdditionalSources(k)
	}
	group := ctx.cfg.ThreadGroupSize

	var sb strings.Builder
	sb.WriteString(additional)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "[numthreads(%d, %d, %d)]\n", group, 1, 1)
	fmt.Fprintf(&sb, "void %s(uint3 GroupId : SV_GroupID, uint GroupIndex : SV_GroupIndex)\n", k.EntryPoint())
	sb.WriteString("{\n")

	if ctx.cfg.IsFeatureEnabled(config.FeatExecutedFlag) {
		sb.WriteString("    // Signal kernel executed by setting the most significant bit of NumData.\n")
		for _, out := range s.OutputPins {
			if out.AllowedTypes.AllowedInDataCollection() {
				fmt.Fprintf(&sb, "    if (all(GroupId == 0u) && GroupIndex == 0) %s_SetAsExecutedInternal();\n", out.Label)
			}
		}
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\tconst uint ThreadIndex = GetUnWrappedDispatchThreadId(GroupId, GroupIndex, %d);\n", group)
	sb.WriteString("\tif (ThreadIndex >= GetNumThreads().x) return;\n")
	sb.WriteString(Preamble(s))
	sb.WriteString("\n")
	if ctx.cfg.IsFeatureEnabled(config.FeatLineDirectives) {
		fmt.Fprintf(&sb, "#line 0 \"%s\"\n", k.ShaderPath())
	}
	sb.WriteString(body)
	sb.WriteString("\n}\n")
	return sb.String()
}
