package graph

import (
	"fmt"

	"github.com/xplshn/pcgk/pkg/codegen"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
	"github.com/xplshn/pcgk/pkg/tables"
	"github.com/xplshn/pcgk/pkg/token"
	"github.com/xplshn/pcgk/pkg/validator"
)

// Binding attaches concrete input data to a compiled graph. It owns copies of
// the graph tables, extended with the attributes and strings the input data
// carries.
type Binding struct {
	cg      *ComputeGraph
	inputs  []InputData
	attrs   *tables.AttributeTable
	strings *tables.StringTable
	descs   map[KernelPin]*kernel.DataCollectionDesc
	graph   map[string]*kernel.DataCollectionDesc
	log     *diag.Log
}

func NewBinding(cg *ComputeGraph, inputs []InputData) *Binding {
	return &Binding{
		cg:     cg,
		inputs: inputs,
		descs:  make(map[KernelPin]*kernel.DataCollectionDesc),
		graph:  make(map[string]*kernel.DataCollectionDesc),
		log:    diag.NewLog(),
	}
}

func (b *Binding) Log() *diag.Log                         { return b.log }
func (b *Binding) AttributeTable() *tables.AttributeTable { return b.attrs }
func (b *Binding) StringTable() *tables.StringTable       { return b.strings }

// Initialize registers the input data and computes a data description for
// every pin, visiting kernels in dependency order.
func (b *Binding) Initialize() error {
	b.attrs = b.cg.attrs.Clone()
	b.strings = b.cg.strings.Clone()

	for _, in := range b.inputs {
		desc, err := b.describeInput(in)
		if err != nil {
			return err
		}
		b.graph[in.Label] = desc
	}

	for _, i := range b.cg.order {
		k := b.cg.kernels[i]
		s := k.Settings()
		for _, in := range s.InputPins {
			pin := KernelPin{Kernel: i, Label: in.Label, IsInput: true}
			desc := &kernel.DataCollectionDesc{}
			for _, p := range b.cg.upstream[pin] {
				var src *kernel.DataCollectionDesc
				if p.kernel < 0 {
					src = b.graph[p.pin]
				} else {
					src = b.descs[KernelPin{Kernel: p.kernel, Label: p.pin}]
				}
				desc.Data = append(desc.Data, src.Clone().Data...)
			}
			b.descs[pin] = desc
		}
		for j := range s.OutputPins {
			b.descs[KernelPin{Kernel: i, Label: s.OutputPins[j].Label}] = b.outputDesc(k, j)
		}
	}
	return nil
}

func (b *Binding) describeInput(in InputData) (*kernel.DataCollectionDesc, error) {
	desc := &kernel.DataCollectionDesc{}
	for _, item := range in.Data {
		d := kernel.DataDesc{
			Type:           in.Type,
			ElementCount:   item.Elements,
			ElementCount2D: item.Elements2D,
		}
		for _, av := range item.Attributes {
			key := kernel.AttributeKey{Name: av.Name, Type: av.Type}
			id, err := b.attrs.Add(key)
			if err != nil {
				b.log.Errorf("", "input '%s': cannot add attribute '%s': %v", in.Label, key, err)
				return nil, fmt.Errorf("input '%s': attribute '%s': %w", in.Label, key, err)
			}
			a := kernel.AttributeDesc{Key: key, ID: id}
			if key.Type.UsesStringKeys() {
				for _, v := range av.Values {
					a.StringKeys = append(a.StringKeys, b.strings.Add(v))
				}
			}
			d.AddAttribute(a)
		}
		for _, tag := range item.Tags {
			d.Tags = append(d.Tags, b.strings.Add(tag))
		}
		desc.Data = append(desc.Data, d)
	}
	return desc, nil
}

func (b *Binding) outputDesc(k *Kernel, index int) *kernel.DataCollectionDesc {
	s := k.Settings()
	out := &s.OutputPins[index]
	pins := b.pins(k.Index())

	var desc *kernel.DataCollectionDesc
	switch {
	case index == 0 && s.IsProcessor() && s.FirstInputPin() != nil:
		desc = pins.InputDesc(s.FirstInputPin().Label).Clone()
	case index == 0 && s.Type == kernel.PointGenerator:
		desc = &kernel.DataCollectionDesc{Data: []kernel.DataDesc{{Type: kernel.Point, ElementCount: s.PointCount}}}
	case index == 0 && s.Type == kernel.TextureGenerator:
		desc = &kernel.DataCollectionDesc{Data: []kernel.DataDesc{{
			Type:           kernel.BaseTexture,
			ElementCount:   s.NumElements2D[0] * s.NumElements2D[1],
			ElementCount2D: s.NumElements2D,
		}}}
	default:
		desc = b.fromPinProperties(k, out)
	}

	add := func(key kernel.AttributeKey) {
		id, ok := b.attrs.ID(key)
		if !ok {
			return
		}
		desc.AddAttributeToAll(kernel.AttributeDesc{Key: key, ID: id})
	}
	for _, key := range out.Properties.CreatedAttributes {
		add(key)
	}
	for _, ps := range k.ParsedSources() {
		for _, fn := range ps.AttributeFunctions {
			if fn.Pin == out.Label && fn.Func == parser.Set {
				add(fn.Key())
			}
		}
	}

	b.propagateStringKeys(k, out, desc)
	return desc
}

// fromPinProperties shapes a non kernel-defined output from its GPU
// properties and the data on the pins it initializes from.
func (b *Binding) fromPinProperties(k *Kernel, out *kernel.PinPropertiesGPU) *kernel.DataCollectionDesc {
	p := out.Properties
	pins := b.pins(k.Index())
	multiplier := max(p.ElementCountMultiplier, 1)

	if p.InitMode == kernel.InitCustom {
		desc := &kernel.DataCollectionDesc{}
		for i := 0; i < p.DataCount; i++ {
			desc.Data = append(desc.Data, kernel.DataDesc{
				Type:           out.AllowedTypes,
				ElementCount:   p.ElementCount * multiplier,
				ElementCount2D: p.ElementCount2D,
			})
		}
		return desc
	}

	var sources []*kernel.DataCollectionDesc
	for _, label := range p.InitFromPins {
		src := pins.InputDesc(label)
		if src == nil {
			src = &kernel.DataCollectionDesc{}
		}
		sources = append(sources, src)
	}

	dataCount := 0
	if p.DataCountMode == kernel.CountFixed {
		dataCount = p.DataCount
	} else if len(sources) > 0 {
		if p.DataMultiplicity == kernel.CartesianProduct {
			dataCount = 1
			for _, src := range sources {
				dataCount *= len(src.Data)
			}
		} else {
			for _, src := range sources {
				dataCount = max(dataCount, len(src.Data))
			}
		}
	}

	desc := &kernel.DataCollectionDesc{}
	for i := 0; i < dataCount; i++ {
		d := kernel.DataDesc{Type: out.AllowedTypes, ElementCount2D: p.ElementCount2D}
		items := pick(sources, i, p.DataMultiplicity)

		if p.ElementCountMode == kernel.CountFixed {
			d.ElementCount = p.ElementCount
		} else {
			first := true
			for _, item := range items {
				if item == nil {
					continue
				}
				n := item.NumElements()
				switch {
				case first:
					first = false
					d.ElementCount = n
					d.ElementCount2D = item.ElementCount2D
				case p.ElementMultiplicity == kernel.ElementSum:
					d.ElementCount += n
				default:
					d.ElementCount *= n
				}
			}
		}
		d.ElementCount *= multiplier

		for _, item := range items {
			if item == nil {
				continue
			}
			if item.Type&out.AllowedTypes != 0 && d.Type != item.Type && bitCount(out.AllowedTypes) > 1 {
				d.Type = item.Type & out.AllowedTypes
			}
			for _, a := range item.Clone().Attributes {
				d.AddAttribute(a)
			}
			d.Tags = append(d.Tags, item.Tags...)
		}
		desc.Data = append(desc.Data, d)
	}
	return desc
}

// pick returns the source data items that make up output data i. Pairwise
// clamps each source to its last item, a cartesian product decomposes i.
func pick(sources []*kernel.DataCollectionDesc, i int, m kernel.DataMultiplicity) []*kernel.DataDesc {
	items := make([]*kernel.DataDesc, len(sources))
	rest := i
	for j, src := range sources {
		n := len(src.Data)
		if n == 0 {
			continue
		}
		index := min(i, n-1)
		if m == kernel.CartesianProduct {
			index = rest % n
			rest /= n
		}
		items[j] = &src.Data[index]
	}
	return items
}

func bitCount(t kernel.DataType) int {
	n := 0
	for v := uint(t); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// propagateStringKeys copies the string keys of matching input attributes
// onto string attributes of the output. When nothing matches by name, every
// string key seen on the inputs is used.
func (b *Binding) propagateStringKeys(k *Kernel, out *kernel.PinPropertiesGPU, desc *kernel.DataCollectionDesc) {
	var stringAttrs []kernel.AttributeKey
	seen := make(map[kernel.AttributeKey]bool)
	for _, d := range desc.Data {
		for _, a := range d.Attributes {
			if a.Key.Type.UsesStringKeys() && len(a.StringKeys) == 0 && !seen[a.Key] {
				seen[a.Key] = true
				stringAttrs = append(stringAttrs, a.Key)
			}
		}
	}
	if len(stringAttrs) == 0 {
		return
	}

	s := k.Settings()
	pins := b.pins(k.Index())
	byName := make(map[string][]int)
	var all []int
	for _, in := range s.InputPins {
		for _, d := range pins.InputDesc(in.Label).Clone().Data {
			for _, a := range d.Attributes {
				if !a.Key.Type.UsesStringKeys() {
					continue
				}
				byName[a.Key.Name] = appendUnique(byName[a.Key.Name], a.StringKeys...)
				all = appendUnique(all, a.StringKeys...)
			}
		}
	}
	if len(all) == 0 {
		b.log.Warn(k.cfg, config.WarnStringKeys, k.Name(), nil, token.Range{}, "No incoming attributes to obtain string keys from for output pin '%s'.", out.Label)
		return
	}

	for _, key := range stringAttrs {
		keys := byName[key.Name]
		if len(keys) == 0 {
			keys = all
		}
		for i := range desc.Data {
			if a, ok := desc.Data[i].Attribute(key.Name); ok && len(a.StringKeys) == 0 {
				a.StringKeys = append([]int(nil), keys...)
			}
		}
	}
}

func appendUnique(dst []int, vals ...int) []int {
	for _, v := range vals {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

// PinDesc returns the data description bound to a pin.
func (b *Binding) PinDesc(kernelIndex int, label string, input bool) *kernel.DataCollectionDesc {
	return b.descs[KernelPin{Kernel: kernelIndex, Label: label, IsInput: input}]
}

// ThreadCount is the dispatch size of a kernel for the bound data.
func (b *Binding) ThreadCount(kernelIndex int) int {
	return codegen.ThreadCount(b.cg.kernels[kernelIndex].Settings(), b.pins(kernelIndex))
}

// Validate runs the checks that need bound data. Errors go to the binding log.
func (b *Binding) Validate(kernelIndex int) bool {
	k := b.cg.kernels[kernelIndex]
	if !k.valid {
		return false
	}
	return validator.Runtime(k, b.pins(kernelIndex), b.log)
}

func (b *Binding) pins(kernelIndex int) kernelPins {
	return kernelPins{b: b, kernel: kernelIndex}
}

type kernelPins struct {
	b      *Binding
	kernel int
}

func (p kernelPins) InputDesc(label string) *kernel.DataCollectionDesc {
	return p.b.PinDesc(p.kernel, label, true)
}

func (p kernelPins) OutputDesc(label string) *kernel.DataCollectionDesc {
	return p.b.PinDesc(p.kernel, label, false)
}
