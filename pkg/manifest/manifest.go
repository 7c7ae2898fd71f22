// Package manifest reads graph description files. A manifest lists the
// kernels of one compute graph, the shader sources they share, the edges
// between their pins and the CPU data fed into the graph.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/graph"
	"gopkg.in/yaml.v3"
)

const SupportedVersions = "^1"

var (
	ErrVersion = errors.New("unsupported manifest version")
	ErrFormat  = errors.New("unknown manifest format")
	ErrCycle   = errors.New("source includes itself")
)

type File struct {
	Version string        `toml:"version" yaml:"version"`
	Name    string        `toml:"name" yaml:"name"`
	Sources []SourceEntry `toml:"sources" yaml:"sources"`
	Inputs  []InputEntry  `toml:"inputs" yaml:"inputs"`
	Kernels []KernelEntry `toml:"kernels" yaml:"kernels"`
	Edges   []EdgeEntry   `toml:"edges" yaml:"edges"`
}

type SourceEntry struct {
	Name     string   `toml:"name" yaml:"name"`
	Text     string   `toml:"text" yaml:"text"`
	File     string   `toml:"file" yaml:"file"`
	Includes []string `toml:"includes" yaml:"includes"`
}

type InputEntry struct {
	Label string      `toml:"label" yaml:"label"`
	Type  string      `toml:"type" yaml:"type"`
	Data  []DataEntry `toml:"data" yaml:"data"`
}

type DataEntry struct {
	Elements   int              `toml:"elements" yaml:"elements"`
	Elements2D [2]int           `toml:"elements_2d" yaml:"elements_2d"`
	Attributes []AttributeEntry `toml:"attributes" yaml:"attributes"`
	Tags       []string         `toml:"tags" yaml:"tags"`
}

type AttributeEntry struct {
	Name   string   `toml:"name" yaml:"name"`
	Type   string   `toml:"type" yaml:"type"`
	Values []string `toml:"values" yaml:"values"`
}

type PinEntry struct {
	Label string   `toml:"label" yaml:"label"`
	Types []string `toml:"types" yaml:"types"`
}

type OutputEntry struct {
	Label string   `toml:"label" yaml:"label"`
	Types []string `toml:"types" yaml:"types"`

	InitMode               string   `toml:"init_mode" yaml:"init_mode"`
	InitFrom               []string `toml:"init_from" yaml:"init_from"`
	DataCountMode          string   `toml:"data_count_mode" yaml:"data_count_mode"`
	DataMultiplicity       string   `toml:"data_multiplicity" yaml:"data_multiplicity"`
	DataCount              *int     `toml:"data_count" yaml:"data_count"`
	ElementCountMode       string   `toml:"element_count_mode" yaml:"element_count_mode"`
	ElementMultiplicity    string   `toml:"element_multiplicity" yaml:"element_multiplicity"`
	ElementCount           *int     `toml:"element_count" yaml:"element_count"`
	ElementCount2D         *[2]int  `toml:"element_count_2d" yaml:"element_count_2d"`
	ElementCountMultiplier *int     `toml:"element_count_multiplier" yaml:"element_count_multiplier"`
	CreatedAttributes      []string `toml:"created_attributes" yaml:"created_attributes"`
}

type KernelEntry struct {
	Name  string `toml:"name" yaml:"name"`
	Title string `toml:"title" yaml:"title"`
	Type  string `toml:"type" yaml:"type"`

	Inputs  []PinEntry    `toml:"inputs" yaml:"inputs"`
	Outputs []OutputEntry `toml:"outputs" yaml:"outputs"`

	PointCount    int    `toml:"point_count" yaml:"point_count"`
	NumElements2D [2]int `toml:"num_elements_2d" yaml:"num_elements_2d"`

	Dispatch              string   `toml:"dispatch" yaml:"dispatch"`
	FixedThreadCount      int      `toml:"fixed_thread_count" yaml:"fixed_thread_count"`
	ThreadCountMultiplier *int     `toml:"thread_count_multiplier" yaml:"thread_count_multiplier"`
	ThreadCountInputPins  []string `toml:"thread_count_input_pins" yaml:"thread_count_input_pins"`

	MuteUnwrittenPinErrors bool `toml:"mute_unwritten_pin_errors" yaml:"mute_unwritten_pin_errors"`

	Source            string   `toml:"source" yaml:"source"`
	SourceFile        string   `toml:"source_file" yaml:"source_file"`
	Functions         string   `toml:"functions" yaml:"functions"`
	SourceOverride    string   `toml:"source_override" yaml:"source_override"`
	AdditionalSources []string `toml:"additional_sources" yaml:"additional_sources"`
	StaticStrings     []string `toml:"static_strings" yaml:"static_strings"`

	// Flags is a shell-quoted list of -W/-F flags for this kernel only.
	Flags string `toml:"flags" yaml:"flags"`
}

// EdgeEntry connects "Kernel.Pin" endpoints. "input.Label" names graph input
// data as the source.
type EdgeEntry struct {
	From string `toml:"from" yaml:"from"`
	To   string `toml:"to" yaml:"to"`
}

// Load reads and decodes the manifest at path. Source files it refers to are
// resolved relative to its directory.
func Load(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, data)
}

// Decode decodes a manifest. name selects the format by extension and
// anchors relative source paths.
func Decode(name string, data []byte) (*graph.Graph, error) {
	f, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	if err := f.CheckVersion(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	g, err := f.Build(filepath.Dir(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return g, nil
}

// Parse decodes the raw file without building the graph. Unknown fields are
// rejected in both formats.
func Parse(name string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("%s:%d:%d: %w", name, row, col, err)
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w '%s', expected .toml, .yaml or .yml", name, ErrFormat, filepath.Ext(name))
	}
	return &f, nil
}

func (f *File) CheckVersion() error {
	if f.Version == "" {
		return fmt.Errorf("%w: missing version, expected %s", ErrVersion, SupportedVersions)
	}
	v, err := semver.NewVersion(f.Version)
	if err != nil {
		return fmt.Errorf("%w '%s': %v", ErrVersion, f.Version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w '%s', expected %s", ErrVersion, v, SupportedVersions)
	}
	return nil
}

// Build converts the decoded file into a graph. dir anchors file references.
func (f *File) Build(dir string) (*graph.Graph, error) {
	sources, err := f.buildSources(dir)
	if err != nil {
		return nil, err
	}
	g := &graph.Graph{Name: f.Name, Flags: make(map[string][]string)}
	if g.Name == "" {
		g.Name = "Graph"
	}

	for _, in := range f.Inputs {
		data, err := buildInput(in)
		if err != nil {
			return nil, err
		}
		g.Inputs = append(g.Inputs, data)
	}

	for _, ke := range f.Kernels {
		s, err := buildKernel(ke, sources, dir)
		if err != nil {
			return nil, fmt.Errorf("kernel '%s': %w", ke.Name, err)
		}
		g.Kernels = append(g.Kernels, s)
		if ke.Flags != "" {
			flags, err := config.ParseCLIString(ke.Flags)
			if err != nil {
				return nil, fmt.Errorf("kernel '%s': %w", ke.Name, err)
			}
			g.Flags[ke.Name] = flags
		}
	}

	for _, ee := range f.Edges {
		from, err := parseEndpoint(ee.From, true)
		if err != nil {
			return nil, err
		}
		to, err := parseEndpoint(ee.To, false)
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, graph.Edge{From: from, To: to})
	}
	return g, nil
}

func parseEndpoint(s string, from bool) (graph.Endpoint, error) {
	kernelName, pin, ok := strings.Cut(s, ".")
	if !ok || kernelName == "" || pin == "" {
		return graph.Endpoint{}, fmt.Errorf("invalid edge endpoint '%s', expected Kernel.Pin", s)
	}
	if kernelName == "input" {
		if !from {
			return graph.Endpoint{}, fmt.Errorf("graph input '%s' cannot be an edge target", s)
		}
		return graph.Endpoint{Pin: pin}, nil
	}
	return graph.Endpoint{Kernel: kernelName, Pin: pin}, nil
}

func readText(dir, text, file string) (string, error) {
	if file == "" {
		return text, nil
	}
	if text != "" {
		return "", fmt.Errorf("both text and file '%s' given", file)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
