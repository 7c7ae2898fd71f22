package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/graph"
	"github.com/xplshn/pcgk/pkg/kernel"
)

// buildSources resolves named sources and their includes into shared
// kernel.Source trees.
func (f *File) buildSources(dir string) (map[string]*kernel.Source, error) {
	entries := make(map[string]*SourceEntry, len(f.Sources))
	for i := range f.Sources {
		e := &f.Sources[i]
		if e.Name == "" {
			return nil, fmt.Errorf("source %d has no name", i)
		}
		if _, dup := entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate source name '%s'", e.Name)
		}
		entries[e.Name] = e
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	built := make(map[string]*kernel.Source, len(entries))
	visiting := make(map[string]bool)
	var build func(name string, path []string) (*kernel.Source, error)
	build = func(name string, path []string) (*kernel.Source, error) {
		if src, ok := built[name]; ok {
			return src, nil
		}
		e, ok := entries[name]
		if !ok {
			return nil, fmt.Errorf("unknown source '%s'%s", name, diag.Suggest(name, names))
		}
		path = append(path, name)
		if visiting[name] {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
		}
		visiting[name] = true
		defer delete(visiting, name)

		text, err := readText(dir, e.Text, e.File)
		if err != nil {
			return nil, fmt.Errorf("source '%s': %w", name, err)
		}
		src := &kernel.Source{Name: name, Text: text}
		for _, inc := range e.Includes {
			nested, err := build(inc, path)
			if err != nil {
				return nil, err
			}
			src.AdditionalSources = append(src.AdditionalSources, nested)
		}
		built[name] = src
		return src, nil
	}

	for _, name := range names {
		if _, err := build(name, nil); err != nil {
			return nil, err
		}
	}
	return built, nil
}

func lookupSource(sources map[string]*kernel.Source, name string) (*kernel.Source, error) {
	src, ok := sources[name]
	if !ok {
		names := make([]string, 0, len(sources))
		for n := range sources {
			names = append(names, n)
		}
		return nil, fmt.Errorf("unknown source '%s'%s", name, diag.Suggest(name, names))
	}
	return src, nil
}

func buildInput(in InputEntry) (graph.InputData, error) {
	dt, err := parseDataTypes([]string{in.Type})
	if err != nil {
		return graph.InputData{}, fmt.Errorf("input '%s': %w", in.Label, err)
	}
	data := graph.InputData{Label: in.Label, Type: dt}
	for _, de := range in.Data {
		item := graph.DataItem{Elements: de.Elements, Elements2D: de.Elements2D, Tags: de.Tags}
		for _, ae := range de.Attributes {
			at, err := parseAttributeType(ae.Type)
			if err != nil {
				return graph.InputData{}, fmt.Errorf("input '%s' attribute '%s': %w", in.Label, ae.Name, err)
			}
			if !kernel.ValidAttributeName(ae.Name, false) {
				return graph.InputData{}, fmt.Errorf("input '%s': invalid attribute name '%s'", in.Label, ae.Name)
			}
			item.Attributes = append(item.Attributes, graph.AttributeValue{Name: ae.Name, Type: at, Values: ae.Values})
		}
		data.Data = append(data.Data, item)
	}
	return data, nil
}

func buildKernel(ke KernelEntry, sources map[string]*kernel.Source, dir string) (*kernel.Settings, error) {
	kt, ok := kernel.ParseKernelType(orDefault(ke.Type, "Custom"))
	if !ok {
		return nil, unknown("kernel type", ke.Type, kernel.KernelTypeNames())
	}
	s := &kernel.Settings{
		Name:                       ke.Name,
		Title:                      ke.Title,
		Type:                       kt,
		PointCount:                 ke.PointCount,
		NumElements2D:              ke.NumElements2D,
		FixedThreadCount:           ke.FixedThreadCount,
		ThreadCountMultiplier:      1,
		ThreadCountInputPinLabels:  ke.ThreadCountInputPins,
		MuteUnwrittenPinDataErrors: ke.MuteUnwrittenPinErrors,
		ShaderFunctions:            ke.Functions,
		StaticStrings:              ke.StaticStrings,
	}
	if ke.ThreadCountMultiplier != nil {
		s.ThreadCountMultiplier = *ke.ThreadCountMultiplier
	}
	if s.DispatchThreadCount, ok = lookup(ke.Dispatch, "FromFirstOutputPin", kernel.DispatchModeNames); !ok {
		return nil, unknownKey("dispatch mode", ke.Dispatch, kernel.DispatchModeNames)
	}

	text, err := readText(dir, ke.Source, ke.SourceFile)
	if err != nil {
		return nil, err
	}
	s.ShaderSource = text
	if ke.SourceOverride != "" {
		if s.SourceOverride, err = lookupSource(sources, ke.SourceOverride); err != nil {
			return nil, err
		}
	}
	for _, name := range ke.AdditionalSources {
		src, err := lookupSource(sources, name)
		if err != nil {
			return nil, err
		}
		s.AdditionalSources = append(s.AdditionalSources, src)
	}

	for _, pe := range ke.Inputs {
		dt, err := parseDataTypes(pe.Types)
		if err != nil {
			return nil, fmt.Errorf("input pin '%s': %w", pe.Label, err)
		}
		s.InputPins = append(s.InputPins, kernel.PinProperties{Label: pe.Label, AllowedTypes: dt})
	}
	for _, oe := range ke.Outputs {
		out, err := buildOutput(oe)
		if err != nil {
			return nil, fmt.Errorf("output pin '%s': %w", oe.Label, err)
		}
		s.OutputPins = append(s.OutputPins, out)
	}
	return s, nil
}

func buildOutput(oe OutputEntry) (kernel.PinPropertiesGPU, error) {
	dt, err := parseDataTypes(oe.Types)
	if err != nil {
		return kernel.PinPropertiesGPU{}, err
	}
	p := kernel.DefaultGPUProperties()
	p.InitFromPins = oe.InitFrom

	var ok bool
	if p.InitMode, ok = lookup(oe.InitMode, "FromInputPins", kernel.InitModeNames); !ok {
		return kernel.PinPropertiesGPU{}, unknownKey("init mode", oe.InitMode, kernel.InitModeNames)
	}
	if p.DataCountMode, ok = lookup(oe.DataCountMode, "FromInputPins", kernel.CountModeNames); !ok {
		return kernel.PinPropertiesGPU{}, unknownKey("data count mode", oe.DataCountMode, kernel.CountModeNames)
	}
	if p.ElementCountMode, ok = lookup(oe.ElementCountMode, "FromInputPins", kernel.CountModeNames); !ok {
		return kernel.PinPropertiesGPU{}, unknownKey("element count mode", oe.ElementCountMode, kernel.CountModeNames)
	}
	if p.DataMultiplicity, ok = lookup(oe.DataMultiplicity, "Pairwise", kernel.DataMultiplicityNames); !ok {
		return kernel.PinPropertiesGPU{}, unknownKey("data multiplicity", oe.DataMultiplicity, kernel.DataMultiplicityNames)
	}
	if p.ElementMultiplicity, ok = lookup(oe.ElementMultiplicity, "Product", kernel.ElementMultiplicityNames); !ok {
		return kernel.PinPropertiesGPU{}, unknownKey("element multiplicity", oe.ElementMultiplicity, kernel.ElementMultiplicityNames)
	}

	if oe.DataCount != nil {
		p.DataCount = *oe.DataCount
	}
	if oe.ElementCount != nil {
		p.ElementCount = *oe.ElementCount
	}
	if oe.ElementCount2D != nil {
		p.ElementCount2D = *oe.ElementCount2D
	}
	if oe.ElementCountMultiplier != nil {
		p.ElementCountMultiplier = *oe.ElementCountMultiplier
	}

	for _, spec := range oe.CreatedAttributes {
		key, err := parseAttributeKey(spec)
		if err != nil {
			return kernel.PinPropertiesGPU{}, err
		}
		p.CreatedAttributes = append(p.CreatedAttributes, key)
	}
	return kernel.PinPropertiesGPU{
		PinProperties: kernel.PinProperties{Label: oe.Label, AllowedTypes: dt},
		Properties:    p,
	}, nil
}

// parseAttributeKey reads "Name:Type". The last colon separates the type, as
// attribute names may contain colons themselves.
func parseAttributeKey(spec string) (kernel.AttributeKey, error) {
	i := strings.LastIndex(spec, ":")
	if i <= 0 {
		return kernel.AttributeKey{}, fmt.Errorf("invalid attribute '%s', expected Name:Type", spec)
	}
	at, err := parseAttributeType(spec[i+1:])
	if err != nil {
		return kernel.AttributeKey{}, fmt.Errorf("attribute '%s': %w", spec, err)
	}
	return kernel.AttributeKey{Name: spec[:i], Type: at}, nil
}

func parseAttributeType(name string) (kernel.AttributeType, error) {
	at, ok := kernel.ParseAttributeType(name)
	if !ok {
		return kernel.AttrInvalid, unknown("attribute type", name, kernel.AttributeTypeNames())
	}
	return at, nil
}

func parseDataTypes(names []string) (kernel.DataType, error) {
	if len(names) == 0 {
		return kernel.DataNone, fmt.Errorf("no data type given")
	}
	var dt kernel.DataType
	for _, name := range names {
		t, ok := kernel.ParseDataType(name)
		if !ok {
			return kernel.DataNone, unknown("data type", name, kernel.DataTypeNames())
		}
		dt |= t
	}
	return dt, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func lookup[T any](value, def string, names map[string]T) (T, bool) {
	v, ok := names[orDefault(value, def)]
	return v, ok
}

func unknown(kind, value string, candidates []string) error {
	return fmt.Errorf("unknown %s '%s'%s", kind, value, diag.Suggest(value, candidates))
}

func unknownKey[T any](kind, value string, names map[string]T) error {
	candidates := make([]string, 0, len(names))
	for n := range names {
		candidates = append(candidates, n)
	}
	sort.Strings(candidates)
	return unknown(kind, value, candidates)
}
