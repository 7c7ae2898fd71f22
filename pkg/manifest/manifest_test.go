package manifest

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/graph"
	"github.com/xplshn/pcgk/pkg/kernel"
)

func TestLoadScatter(t *testing.T) {
	g, err := Load("../../testdata/scatter.toml")
	require.NoError(t, err)

	assert.Equal(t, "Scatter", g.Name)
	require.Len(t, g.Kernels, 2)
	assert.Equal(t, []string{"-Wunused-pin"}, g.Flags["Tag"])
	assert.Equal(t, []graph.Edge{
		{From: graph.Endpoint{Pin: "Points"}, To: graph.Endpoint{Kernel: "Jitter", Pin: "In"}},
		{From: graph.Endpoint{Kernel: "Jitter", Pin: "Out"}, To: graph.Endpoint{Kernel: "Tag", Pin: "Jittered"}},
	}, g.Edges)

	jitter := g.Kernels[0]
	assert.Equal(t, kernel.PointProcessor, jitter.Type)
	require.Len(t, jitter.AdditionalSources, 1)
	noise := jitter.AdditionalSources[0]
	assert.Contains(t, noise.Text, "float Noise2D(float2 P)", "file sources are read relative to the manifest")
	require.Len(t, noise.AdditionalSources, 1)
	assert.Equal(t, "Hash", noise.AdditionalSources[0].Name)

	tag := g.Kernels[1]
	out := tag.OutputPins[0]
	assert.Equal(t, []string{"Jittered"}, out.Properties.InitFromPins)
	assert.Equal(t, []kernel.AttributeKey{{Name: "Zone", Type: kernel.AttrInt}}, out.Properties.CreatedAttributes)
	assert.Equal(t, 1, out.Properties.DataCount)

	require.Len(t, g.Inputs, 1)
	in := g.Inputs[0]
	assert.Equal(t, kernel.Point, in.Type)
	assert.Equal(t, 256, in.Data[0].Elements)
	assert.Equal(t, graph.AttributeValue{Name: "Biome", Type: kernel.AttrStringKey, Values: []string{"Meadow", "Pine"}}, in.Data[0].Attributes[1])
}

func TestCompileScatter(t *testing.T) {
	g, err := Load("../../testdata/scatter.toml")
	require.NoError(t, err)
	cg, err := graph.Compile(g, config.NewConfig())
	require.NoError(t, err)
	require.True(t, cg.Valid(), "entries: %v", cg.Log().Entries())

	want := []kernel.AttributeKey{
		{Name: "Density", Type: kernel.AttrFloat},
		{Name: "Jittered", Type: kernel.AttrFloat},
		{Name: "Zone", Type: kernel.AttrInt},
	}
	if diff := cmp.Diff(want, cg.AttributeTable().Keys()); diff != "" {
		t.Errorf("attribute table (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"", "Forest"}, cg.StringTable().Values())

	jitter, tag := cg.Cooked()[0].Source, cg.Cooked()[1].Source
	assert.Contains(t, jitter, "In_GetFloat(32, In_DataIndex, ElementIndex)")
	assert.Contains(t, jitter, "Out_SetFloat(33, Density * 0.5f, Out_DataIndex, ElementIndex)")
	assert.Less(t, strings.Index(jitter, "uint PCGHash("), strings.Index(jitter, "float Noise2D("), "includes are emitted first")
	assert.Contains(t, jitter, "void Jitter_Points_PCGCustomHLSLKernel(")

	assert.Contains(t, tag, "PCG_COPY_ALL_ATTRIBUTES_TO_OUTPUT(Tagged, Jittered, Index, 0u, Index, 0u);")
	assert.Contains(t, tag, "Jittered_GetNumElements(Jittered_GetDataIndexFromIdInternal(/*DataId=*/0u))")
	assert.Contains(t, tag, "Tagged_SetInt(34, (int)Forest, 0u, Index)")
	assert.NotContains(t, tag, "SetAsExecutedInternal", "the source directive turns the flag off")

	b := graph.NewBinding(cg, g.Inputs)
	require.NoError(t, b.Initialize())
	assert.Equal(t, 256, b.ThreadCount(0))
	assert.Equal(t, 256, b.ThreadCount(1))
	assert.True(t, b.Validate(0))
	assert.True(t, b.Validate(1))

	tagged := b.PinDesc(1, "Tagged", false)
	require.Len(t, tagged.Data, 1)
	for _, name := range []string{"Density", "Biome", "Jittered", "Zone"} {
		_, ok := tagged.Data[0].Attribute(name)
		assert.True(t, ok, name)
	}
}

func TestCompileTexture(t *testing.T) {
	g, err := Load("../../testdata/texture.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Heightfield", g.Name)

	cg, err := graph.Compile(g, config.NewConfig())
	require.NoError(t, err)
	require.True(t, cg.Valid(), "entries: %v", cg.Log().Entries())

	gen := cg.Cooked()[0].Source
	assert.Contains(t, gen, "const uint2 NumElements = uint2(64, 64);")
	assert.Contains(t, gen, "Out_Store(Out_DataIndex, ElementIndex, (float4)0.0f);")

	b := graph.NewBinding(cg, nil)
	require.NoError(t, b.Initialize())
	assert.Equal(t, 4096, b.ThreadCount(0))
	assert.Equal(t, 4096, b.ThreadCount(1))
	assert.Equal(t, [2]int{64, 64}, b.PinDesc(1, "Source", true).Data[0].ElementCount2D)
}

func TestCompileUnwritten(t *testing.T) {
	g, err := Load("../../testdata/unwritten.toml")
	require.NoError(t, err)
	cg, err := graph.Compile(g, config.NewConfig())
	require.NoError(t, err)

	k := cg.Cooked()[0]
	assert.False(t, k.Valid)
	assert.Empty(t, k.Source)
	var errs []string
	for _, e := range k.Diagnostics {
		if e.Severity == diag.Error {
			errs = append(errs, e.Message)
		}
	}
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Data on pin 'Out' may be uninitialized.")
}

const minimal = `
version = "1.3.0"

[[kernels]]
name = "K"
type = "%s"
source = "Out_SetFloat('A', 1.0f, 0u, 0u);"

  [[kernels.outputs]]
  label = "Out"
  types = ["Point"]
  init_mode = "Custom"
`

func TestDecodeDefaults(t *testing.T) {
	g, err := Decode("inline.toml", []byte(strings.Replace(minimal, "%s", "Custom", 1)))
	require.NoError(t, err)

	assert.Equal(t, "Graph", g.Name)
	s := g.Kernels[0]
	assert.Equal(t, kernel.Custom, s.Type)
	assert.Equal(t, kernel.DispatchFromFirstOutputPin, s.DispatchThreadCount)
	assert.Equal(t, 1, s.ThreadCountMultiplier)
	p := s.OutputPins[0].Properties
	assert.Equal(t, kernel.InitCustom, p.InitMode)
	assert.Equal(t, kernel.Pairwise, p.DataMultiplicity)
	assert.Equal(t, kernel.ElementProduct, p.ElementMultiplicity)
	assert.Equal(t, [2]int{1, 1}, p.ElementCount2D)
	assert.Equal(t, 1, p.ElementCountMultiplier)
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
		is   error
		want string
	}{
		{"format", "graph.json", "{}", ErrFormat, "expected .toml, .yaml or .yml"},
		{"missing version", "g.toml", `name = "G"`, ErrVersion, "missing version"},
		{"future version", "g.toml", `version = "2.0.0"`, ErrVersion, "expected ^1"},
		{"bad version", "g.toml", `version = "one"`, ErrVersion, "'one'"},
		{"unknown toml field", "g.toml", "version = \"1.0.0\"\ncolour = \"red\"", nil, "g.toml"},
		{"unknown yaml field", "g.yaml", "version: 1.0.0\ncolour: red\n", nil, "colour"},
		{"kernel type", "g.toml", strings.Replace(minimal, "%s", "PointProccessor", 1), nil, "unknown kernel type 'PointProccessor' (did you mean 'PointProcessor'?)"},
		{"source cycle", "g.yaml", "version: 1.0.0\nsources:\n  - {name: A, text: a, includes: [B]}\n  - {name: B, text: b, includes: [A]}\n", ErrCycle, "A -> B -> A"},
		{"unknown source", "g.yaml", "version: 1.0.0\nsources:\n  - {name: Noise, text: n}\nkernels:\n  - {name: K, additional_sources: [Noize]}\n", nil, "unknown source 'Noize' (did you mean 'Noise'?)"},
		{"edge endpoint", "g.yaml", "version: 1.0.0\nedges:\n  - {from: Jitter, to: Tag.In}\n", nil, "expected Kernel.Pin"},
		{"input as target", "g.yaml", "version: 1.0.0\nedges:\n  - {from: A.Out, to: input.Points}\n", nil, "cannot be an edge target"},
		{"attribute type", "g.yaml", "version: 1.0.0\ninputs:\n  - {label: P, type: Point, data: [{elements: 1, attributes: [{name: D, type: Flot}]}]}\n", nil, "(did you mean 'Float'?)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.file, []byte(tc.data))
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseAttributeKey(t *testing.T) {
	key, err := parseAttributeKey("Ns:Sub:Float3")
	require.NoError(t, err)
	assert.Equal(t, kernel.AttributeKey{Name: "Ns:Sub", Type: kernel.AttrFloat3}, key)

	_, err = parseAttributeKey("NoType")
	assert.ErrorContains(t, err, "expected Name:Type")
	_, err = parseAttributeKey(":Float")
	assert.Error(t, err)
}

func TestParseDataTypes(t *testing.T) {
	dt, err := parseDataTypes([]string{"Point", "attributeset"})
	require.NoError(t, err)
	assert.Equal(t, kernel.PointOrParam, dt)

	_, err = parseDataTypes(nil)
	assert.Error(t, err)
}
