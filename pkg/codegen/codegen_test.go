package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
	"github.com/xplshn/pcgk/pkg/tables"
)

type fakeKernel struct {
	settings *kernel.Settings
	sources  []*parser.ParsedSource
	labels   map[string]int
}

func (k *fakeKernel) Name() string                          { return k.settings.Name }
func (k *fakeKernel) Settings() *kernel.Settings            { return k.settings }
func (k *fakeKernel) ParsedSources() []*parser.ParsedSource { return k.sources }
func (k *fakeKernel) EntryPoint() string                    { return EntryPointName(k.settings.Title, "PCGCustomHLSLKernel") }
func (k *fakeKernel) ShaderPath() string                    { return ShaderPath("G", k.settings.Name) }

func (k *fakeKernel) DataLabelID(pin, label string) (int, bool) {
	id, ok := k.labels[pin+"/"+label]
	return id, ok
}

func pointProcessor() *kernel.Settings {
	return &kernel.Settings{
		Name:      "Scale",
		Title:     "Scale Speed",
		Type:      kernel.PointProcessor,
		InputPins: []kernel.PinProperties{{Label: "In", AllowedTypes: kernel.Point}},
		OutputPins: []kernel.PinPropertiesGPU{
			{PinProperties: kernel.PinProperties{Label: "Out", AllowedTypes: kernel.Point}, Properties: kernel.DefaultGPUProperties()},
		},
	}
}

func newKernel(s *kernel.Settings, cfg *config.Config, log *diag.Log, srcs ...string) *fakeKernel {
	k := &fakeKernel{settings: s, labels: make(map[string]int)}
	p := parser.NewParser(parser.NewKeywords(s), s.Name, cfg, log)
	for i, src := range srcs {
		k.sources = append(k.sources, p.Parse(s.Name+"/"+string(rune('A'+i)), src))
	}
	return k
}

func TestApplyMatchesSequentialReplacement(t *testing.T) {
	src := "aaa bbb ccc ddd"
	reps := []Replacement{
		{Begin: 8, End: 11, Text: "3"},
		{Begin: 0, End: 3, Text: "first"},
		{Begin: 4, End: 7, Text: ""},
		{Begin: 12, End: 12, Text: ">"},
	}
	got, err := Apply(src, reps)
	require.NoError(t, err)

	// Left to right with a running offset gives the same text.
	want, shift := src, 0
	for _, r := range []Replacement{reps[1], reps[2], reps[0], reps[3]} {
		want = want[:r.Begin+shift] + r.Text + want[r.End+shift:]
		shift += len(r.Text) - (r.End - r.Begin)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, "first  3 >ddd", got)
}

func TestApplyRejectsOverlapAndRange(t *testing.T) {
	_, err := Apply("abcdef", []Replacement{{Begin: 0, End: 3}, {Begin: 2, End: 4}})
	assert.ErrorContains(t, err, "overlap")

	_, err = Apply("abc", []Replacement{{Begin: 2, End: 9}})
	assert.ErrorContains(t, err, "out of range")

	got, err := Apply("abc", nil)
	assert.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestProcessSourceResolvesNestedAttributes(t *testing.T) {
	cfg, log := config.NewConfig(), diag.NewLog()
	src := "Out_SetFloat('Speed', In_GetFloat('Speed', 0, 0) * 2.0, 0, 0);"
	k := newKernel(pointProcessor(), cfg, log, src)

	attrs := tables.NewAttributeTable(cfg.MaxCustomAttributes, cfg.ReservedAttributes)
	for _, key := range k.sources[0].AttributeKeys {
		_, err := attrs.Add(key)
		require.NoError(t, err)
	}

	out := NewContext(cfg, attrs, log).ProcessSource(k, k.sources[0])
	assert.Equal(t, "Out_SetFloat(32, In_GetFloat(32, 0, 0) * 2.0, 0, 0);", out)
	assert.False(t, log.HasErrors())
}

func TestProcessSourceMissingAttributeIsAnError(t *testing.T) {
	cfg, log := config.NewConfig(), diag.NewLog()
	k := newKernel(pointProcessor(), cfg, log, "float x = In_GetFloat('Missing', 0, 0);")
	out := NewContext(cfg, tables.NewAttributeTable(4, 0), log).ProcessSource(k, k.sources[0])

	assert.True(t, log.HasErrors())
	assert.Contains(t, out, "In_GetFloat(-1, 0, 0)")
}

func TestProcessSourceDataLabelsAndCopy(t *testing.T) {
	cfg, log := config.NewConfig(), diag.NewLog()
	src := "uint N = In_GetNumElements('Main');\r\nOut_CopyElementFrom_In(0u, i, 0u, i);"
	k := newKernel(pointProcessor(), cfg, log, src)
	k.labels["In/Main"] = 3

	out := NewContext(cfg, tables.NewAttributeTable(4, 0), log).ProcessSource(k, k.sources[0])
	assert.Equal(t,
		"uint N = In_GetNumElements(In_GetDataIndexFromIdInternal(/*DataId=*/3u));\n"+
			"PCG_COPY_ALL_ATTRIBUTES_TO_OUTPUT(Out, In, 0u, i, 0u, i);", out)
	assert.False(t, log.HasErrors())
}

func TestCookLayout(t *testing.T) {
	cfg, log := config.NewConfig(), diag.NewLog()
	k := newKernel(pointProcessor(), cfg, log, "float S = 1.0f;", "float Helper() { return 1.0f; }")

	out := NewContext(cfg, tables.NewAttributeTable(4, 0), log).Cook(k)

	helper := strings.Index(out, "float Helper()")
	entry := strings.Index(out, "void Scale_Speed_PCGCustomHLSLKernel(")
	line := strings.Index(out, "#line 0 \"/Engine/Generated/PCG/G/Scale.usf\"")
	body := strings.Index(out, "float S = 1.0f;")
	require.True(t, helper >= 0 && entry >= 0 && line >= 0 && body >= 0, out)
	assert.Less(t, helper, entry, "additional sources come before the kernel")
	assert.Less(t, entry, line)
	assert.Less(t, line, body)

	assert.Contains(t, out, "[numthreads(64, 1, 1)]")
	assert.Contains(t, out, "Out_SetAsExecutedInternal();")
	assert.Contains(t, out, "GetUnWrappedDispatchThreadId(GroupId, GroupIndex, 64)")
	assert.Contains(t, out, "PCG_COPY_ALL_ATTRIBUTES_TO_OUTPUT(Out, In, Out_DataIndex, ElementIndex, In_DataIndex, ElementIndex);")
	assert.True(t, strings.HasSuffix(out, "float S = 1.0f;\n}\n"))
}

func TestCookHonorsFeatures(t *testing.T) {
	cfg, log := config.NewConfig(), diag.NewLog()
	cfg.SetFeature(config.FeatLineDirectives, false)
	cfg.SetFeature(config.FeatExecutedFlag, false)
	cfg.ThreadGroupSize = 128
	k := newKernel(pointProcessor(), cfg, log, "")

	out := NewContext(cfg, tables.NewAttributeTable(4, 0), log).Cook(k)
	assert.NotContains(t, out, "#line")
	assert.NotContains(t, out, "SetAsExecutedInternal")
	assert.Contains(t, out, "[numthreads(128, 1, 1)]")
}

func TestPreamble(t *testing.T) {
	gen := &kernel.Settings{
		Type:       kernel.PointGenerator,
		PointCount: 500,
		OutputPins: []kernel.PinPropertiesGPU{{PinProperties: kernel.PinProperties{Label: "Out", AllowedTypes: kernel.Point}}},
	}
	p := Preamble(gen)
	assert.Contains(t, p, "const uint NumElements = 500;")
	assert.Contains(t, p, "Out_InitializePoint(Out_DataIndex, ElementIndex);")

	tex := &kernel.Settings{
		Type:          kernel.TextureGenerator,
		NumElements2D: [2]int{64, 32},
		OutputPins:    []kernel.PinPropertiesGPU{{PinProperties: kernel.PinProperties{Label: "Tex", AllowedTypes: kernel.Texture}}},
	}
	p = Preamble(tex)
	assert.Contains(t, p, "const uint2 NumElements = uint2(64, 32);")
	assert.Contains(t, p, "Tex_Store(Tex_DataIndex, ElementIndex, (float4)0.0f);")

	custom := &kernel.Settings{Type: kernel.Custom}
	assert.Equal(t, "    // Kernel preamble\n", Preamble(custom))

	// A processor without pins has nothing to copy.
	assert.Equal(t, "    // Kernel preamble\n", Preamble(&kernel.Settings{Type: kernel.PointProcessor}))
}

func TestEntryPointName(t *testing.T) {
	assert.Equal(t, "Custom_HLSL_PCGCustomHLSLKernel", EntryPointName("", "PCGCustomHLSLKernel"))
	assert.Equal(t, "My_Node__v2__PCGCustomHLSLKernel", EntryPointName("My Node (v2)", "PCGCustomHLSLKernel"))
	assert.Equal(t, "A_b", EntryPointName("A-b", ""))
}

func TestShaderPath(t *testing.T) {
	assert.Equal(t, "/Engine/Generated/PCG/My_Graph/K_1.usf", ShaderPath("My Graph", "K:1"))
}

type descs map[string]*kernel.DataCollectionDesc

func (d descs) InputDesc(label string) *kernel.DataCollectionDesc  { return d["in:"+label] }
func (d descs) OutputDesc(label string) *kernel.DataCollectionDesc { return d["out:"+label] }

func points(counts ...int) *kernel.DataCollectionDesc {
	c := &kernel.DataCollectionDesc{}
	for _, n := range counts {
		c.Data = append(c.Data, kernel.DataDesc{Type: kernel.Point, ElementCount: n})
	}
	return c
}

func TestThreadCount(t *testing.T) {
	d := descs{
		"in:A":  points(10, 5),
		"in:B":  points(3),
		"out:O": points(7),
	}
	out := []kernel.PinPropertiesGPU{{
		PinProperties: kernel.PinProperties{Label: "O", AllowedTypes: kernel.Point},
		Properties:    kernel.GPUProperties{ElementCountMultiplier: 2},
	}}
	in := []kernel.PinProperties{{Label: "A", AllowedTypes: kernel.Point}, {Label: "B", AllowedTypes: kernel.Point}}

	cases := []struct {
		name string
		s    kernel.Settings
		want int
	}{
		{"point generator", kernel.Settings{Type: kernel.PointGenerator, PointCount: 42}, 42},
		{"texture generator", kernel.Settings{Type: kernel.TextureGenerator, NumElements2D: [2]int{8, 4}}, 32},
		{"processor", kernel.Settings{Type: kernel.PointProcessor, InputPins: in}, 15},
		{"first output", kernel.Settings{Type: kernel.Custom, OutputPins: out, ThreadCountMultiplier: 1}, 14},
		{"product", kernel.Settings{Type: kernel.Custom, InputPins: in, DispatchThreadCount: kernel.DispatchFromProductOfInputPins, ThreadCountInputPinLabels: []string{"A", "B"}, ThreadCountMultiplier: 1}, 45},
		{"product multiplied", kernel.Settings{Type: kernel.Custom, InputPins: in, DispatchThreadCount: kernel.DispatchFromProductOfInputPins, ThreadCountInputPinLabels: []string{"A", "B"}, ThreadCountMultiplier: 2}, 90},
		{"fixed", kernel.Settings{Type: kernel.Custom, DispatchThreadCount: kernel.DispatchFixed, FixedThreadCount: 9}, 9},
		{"fixed ignores multiplier", kernel.Settings{Type: kernel.Custom, DispatchThreadCount: kernel.DispatchFixed, FixedThreadCount: 9, ThreadCountMultiplier: 3}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ThreadCount(&tc.s, d))
		})
	}
}
