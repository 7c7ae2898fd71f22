package graph

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/pcgk/pkg/codegen"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/tables"
	"github.com/xplshn/pcgk/pkg/validator"
)

const ShaderHeader = "#include \"/Engine/Private/ComputeShaderUtils.ush\"\n\n"

var (
	ErrUnknownKernel = errors.New("unknown kernel")
	ErrUnknownPin    = errors.New("unknown pin")
	ErrCycle         = errors.New("graph contains a cycle")
)

// Endpoint names one side of an edge. An empty Kernel refers to graph input
// data, with Pin naming the input.
type Endpoint struct {
	Kernel string `json:"kernel,omitempty" toml:"kernel" yaml:"kernel"`
	Pin    string `json:"pin" toml:"pin" yaml:"pin"`
}

func (e Endpoint) String() string {
	if e.Kernel == "" {
		return "input." + e.Pin
	}
	return e.Kernel + "." + e.Pin
}

type Edge struct {
	From Endpoint
	To   Endpoint
}

type AttributeValue struct {
	Name   string
	Type   kernel.AttributeType
	Values []string
}

type DataItem struct {
	Elements   int
	Elements2D [2]int
	Attributes []AttributeValue
	Tags       []string
}

// InputData is data fed into the graph from outside, bound at runtime.
type InputData struct {
	Label string
	Type  kernel.DataType
	Data  []DataItem
}

type Graph struct {
	Name    string
	Kernels []*kernel.Settings
	Edges   []Edge
	Inputs  []InputData
	// Flags holds -W/-F flags applied to one kernel only, keyed by kernel name.
	Flags map[string][]string
}

type KernelPin struct {
	Kernel  int
	Label   string
	IsInput bool
}

// producer feeds an input pin. Kernel is -1 for graph input data.
type producer struct {
	kernel int
	pin    string
}

type CookedKernel struct {
	Name            string       `json:"name"`
	EntryPoint      string       `json:"entry_point,omitempty"`
	ShaderPath      string       `json:"shader_path,omitempty"`
	Valid           bool         `json:"valid"`
	ThreadGroupSize int          `json:"thread_group_size"`
	Hash            string       `json:"hash,omitempty"`
	Source          string       `json:"source,omitempty"`
	Diagnostics     []diag.Entry `json:"diagnostics,omitempty"`
}

// ComputeGraph is a compiled graph: every kernel parsed, validated and
// cooked, plus the attribute and string tables they share.
type ComputeGraph struct {
	Name string

	cfg      *config.Config
	log      *diag.Log
	kernels  []*Kernel
	order    []int
	upstream map[KernelPin][]producer
	inputs   map[string]int
	attrs    *tables.AttributeTable
	strings  *tables.StringTable
	cooked   []CookedKernel
}

func (cg *ComputeGraph) Log() *diag.Log                         { return cg.log }
func (cg *ComputeGraph) Kernels() []*Kernel                     { return cg.kernels }
func (cg *ComputeGraph) Order() []int                           { return cg.order }
func (cg *ComputeGraph) Cooked() []CookedKernel                 { return cg.cooked }
func (cg *ComputeGraph) AttributeTable() *tables.AttributeTable { return cg.attrs }
func (cg *ComputeGraph) StringTable() *tables.StringTable       { return cg.strings }

func (cg *ComputeGraph) Kernel(name string) (*Kernel, bool) {
	for _, k := range cg.kernels {
		if k.Name() == name {
			return k, true
		}
	}
	return nil, false
}

// Valid reports whether every kernel compiled.
func (cg *ComputeGraph) Valid() bool {
	for _, k := range cg.kernels {
		if !k.valid {
			return false
		}
	}
	return true
}

// Compile builds the compute graph for g. Structural problems in the graph
// return an error; problems inside a kernel are logged against it and mark
// only that kernel invalid.
func Compile(g *Graph, cfg *config.Config) (*ComputeGraph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cg := &ComputeGraph{
		Name:     g.Name,
		cfg:      cfg,
		log:      diag.NewLog(),
		upstream: make(map[KernelPin][]producer),
		inputs:   make(map[string]int),
		attrs:    tables.NewAttributeTable(cfg.MaxCustomAttributes, cfg.ReservedAttributes),
		strings:  tables.NewStringTable(),
	}

	names := make(map[string]int, len(g.Kernels))
	for i, s := range g.Kernels {
		if s.Name == "" {
			return nil, fmt.Errorf("kernel %d has no name", i)
		}
		if _, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("duplicate kernel name '%s'", s.Name)
		}
		names[s.Name] = i
		k := NewKernel(i, s, g.Name, cfg, cg.log)
		if err := k.cfg.ProcessFlags(g.Flags[s.Name]); err != nil {
			return nil, fmt.Errorf("kernel '%s': %w", s.Name, err)
		}
		cg.kernels = append(cg.kernels, k)
	}
	for name := range g.Flags {
		if _, ok := names[name]; !ok {
			return nil, fmt.Errorf("flags for %w '%s'", ErrUnknownKernel, name)
		}
	}
	for i, in := range g.Inputs {
		cg.inputs[in.Label] = i
	}

	if err := cg.resolveEdges(g, names); err != nil {
		return nil, err
	}
	order, err := cg.sort(len(g.Kernels))
	if err != nil {
		return nil, err
	}
	cg.order = order

	for _, k := range cg.kernels {
		k.Initialize()
		k.valid = validator.Static(k, k.cfg, cg.log)
	}

	for _, k := range cg.kernels {
		if !k.valid {
			continue
		}
		for _, key := range k.AttributeKeys() {
			if _, err := cg.attrs.Add(key); err != nil {
				cg.log.Errorf(k.Name(), "cannot add attribute '%s': %v (at most %d custom attributes)", key, err, cg.attrs.Capacity())
				k.valid = false
				break
			}
		}
		if !k.valid {
			continue
		}
		for _, str := range k.StaticStrings() {
			if str != "" {
				cg.strings.Add(str)
			}
		}
	}
	cg.log.Verbosef("", "attribute table holds %d of %d keys, string table holds %d strings", cg.attrs.Len(), cg.attrs.Capacity(), cg.strings.Len())

	for _, k := range cg.kernels {
		cg.cooked = append(cg.cooked, cg.cook(k))
	}
	return cg, nil
}

func (cg *ComputeGraph) cook(k *Kernel) CookedKernel {
	ck := CookedKernel{
		Name:            k.Name(),
		EntryPoint:      k.EntryPoint(),
		ShaderPath:      k.ShaderPath(),
		ThreadGroupSize: k.cfg.ThreadGroupSize,
	}
	if k.valid {
		before := cg.log.Count(diag.Error)
		source := ShaderHeader + codegen.NewContext(k.cfg, cg.attrs, cg.log).Cook(k)
		if cg.log.Count(diag.Error) > before {
			k.valid = false
		} else {
			ck.Source = source
			ck.Hash = fmt.Sprintf("%016x", xxhash.Sum64String(source))
		}
	}
	ck.Valid = k.valid
	ck.Diagnostics = cg.log.ForKernel(k.Name())
	return ck
}

func (cg *ComputeGraph) resolveEdges(g *Graph, names map[string]int) error {
	kernelNames := make([]string, 0, len(names))
	for _, s := range g.Kernels {
		kernelNames = append(kernelNames, s.Name)
	}
	inputNames := make([]string, 0, len(g.Inputs))
	for _, in := range g.Inputs {
		inputNames = append(inputNames, in.Label)
	}

	for _, e := range g.Edges {
		var from producer
		if e.From.Kernel == "" {
			if _, ok := cg.inputs[e.From.Pin]; !ok {
				return fmt.Errorf("edge %s -> %s: %w '%s'%s", e.From, e.To, ErrUnknownPin, e.From.Pin, diag.Suggest(e.From.Pin, inputNames))
			}
			from = producer{kernel: -1, pin: e.From.Pin}
		} else {
			i, ok := names[e.From.Kernel]
			if !ok {
				return fmt.Errorf("edge %s -> %s: %w '%s'%s", e.From, e.To, ErrUnknownKernel, e.From.Kernel, diag.Suggest(e.From.Kernel, kernelNames))
			}
			s := g.Kernels[i]
			if _, ok := s.OutputPin(e.From.Pin); !ok {
				return fmt.Errorf("edge %s -> %s: %w: '%s' has no output pin '%s'%s", e.From, e.To, ErrUnknownPin, s.Name, e.From.Pin, diag.Suggest(e.From.Pin, s.OutputLabels()))
			}
			from = producer{kernel: i, pin: e.From.Pin}
		}

		j, ok := names[e.To.Kernel]
		if !ok {
			return fmt.Errorf("edge %s -> %s: %w '%s'%s", e.From, e.To, ErrUnknownKernel, e.To.Kernel, diag.Suggest(e.To.Kernel, kernelNames))
		}
		s := g.Kernels[j]
		if _, ok := s.InputPin(e.To.Pin); !ok {
			return fmt.Errorf("edge %s -> %s: %w: '%s' has no input pin '%s'%s", e.From, e.To, ErrUnknownPin, s.Name, e.To.Pin, diag.Suggest(e.To.Pin, s.InputLabels()))
		}
		pin := KernelPin{Kernel: j, Label: e.To.Pin, IsInput: true}
		cg.upstream[pin] = append(cg.upstream[pin], from)
	}
	return nil
}

// sort orders kernels so producers come before consumers. Ties keep
// declaration order.
func (cg *ComputeGraph) sort(n int) ([]int, error) {
	indegree := make([]int, n)
	consumers := make([][]int, n)
	for pin, prods := range cg.upstream {
		for _, p := range prods {
			if p.kernel >= 0 {
				indegree[pin.Kernel]++
				consumers[p.kernel] = append(consumers[p.kernel], pin.Kernel)
			}
		}
	}

	order := make([]int, 0, n)
	done := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i := 0; i < n; i++ {
				if !done[i] {
					stuck = append(stuck, cg.kernels[i].Name())
				}
			}
			return nil, fmt.Errorf("%w through kernels %v", ErrCycle, stuck)
		}
		done[next] = true
		order = append(order, next)
		for _, c := range consumers[next] {
			indegree[c]--
		}
	}
	return order, nil
}
