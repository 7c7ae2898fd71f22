package graph

import (
	"github.com/xplshn/pcgk/pkg/codegen"
	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
	"github.com/xplshn/pcgk/pkg/token"
)

// Kernel is the compile unit of one Custom HLSL node.
type Kernel struct {
	index     int
	settings  *kernel.Settings
	graphName string
	cfg       *config.Config
	log       *diag.Log

	entryPoint string
	shaderPath string
	sources    []*parser.ParsedSource
	keys       []kernel.AttributeKey
	labels     map[string][]string
	valid      bool
}

func NewKernel(index int, s *kernel.Settings, graphName string, cfg *config.Config, log *diag.Log) *Kernel {
	return &Kernel{
		index:     index,
		settings:  s,
		graphName: graphName,
		cfg:       cfg.Clone(),
		log:       log,
		labels:    make(map[string][]string),
	}
}

func (k *Kernel) Index() int                            { return k.index }
func (k *Kernel) Name() string                          { return k.settings.Name }
func (k *Kernel) Settings() *kernel.Settings            { return k.settings }
func (k *Kernel) Config() *config.Config                { return k.cfg }
func (k *Kernel) EntryPoint() string                    { return k.entryPoint }
func (k *Kernel) ShaderPath() string                    { return k.shaderPath }
func (k *Kernel) ParsedSources() []*parser.ParsedSource { return k.sources }
func (k *Kernel) AttributeKeys() []kernel.AttributeKey  { return k.keys }
func (k *Kernel) Valid() bool                           { return k.valid }
func (k *Kernel) DataLabels(pin string) []string        { return k.labels[pin] }

func (k *Kernel) DataLabelID(pin, label string) (int, bool) {
	for i, l := range k.labels[pin] {
		if l == label {
			return i, true
		}
	}
	return -1, false
}

// Initialize names the entry point, parses every source and gathers the
// attribute keys and data labels the kernel refers to.
func (k *Kernel) Initialize() {
	s := k.settings
	k.entryPoint = codegen.EntryPointName(s.Title, k.cfg.KernelNameSuffix)
	k.shaderPath = codegen.ShaderPath(k.graphName, s.Name)

	for _, out := range s.OutputPins {
		for _, key := range out.Properties.CreatedAttributes {
			if kernel.ValidAttributeName(key.Name, false) {
				k.addKey(key)
			}
		}
	}

	files := k.sourceFiles()
	for _, f := range files {
		for _, d := range parser.ScanDirectives(f.Text) {
			if err := k.cfg.ProcessDirectiveFlags(d); err != nil {
				k.log.Warn(k.cfg, config.WarnExtra, k.Name(), nil, token.Range{}, "ignoring directive in '%s': %v", f.Name, err)
			}
		}
	}

	p := parser.NewParser(parser.NewKeywords(s), k.Name(), k.cfg, k.log)
	k.sources = k.sources[:0]
	for _, f := range files {
		ps := p.Parse(f.Name, f.Text)
		k.sources = append(k.sources, ps)
		for _, key := range ps.AttributeKeys {
			k.addKey(key)
		}
		for _, ref := range ps.DataLabelRefs {
			k.addLabel(ref.Pin, ref.Label)
		}
	}

	functions, labels := 0, 0
	for _, ps := range k.sources {
		functions += len(ps.AttributeFunctions)
		labels += len(ps.DataLabelRefs)
	}
	k.log.Verbosef(k.Name(), "parsed %d sources with %d attribute functions and %d data label references", len(k.sources), functions, labels)
}

func (k *Kernel) addKey(key kernel.AttributeKey) {
	for _, existing := range k.keys {
		if existing == key {
			return
		}
	}
	k.keys = append(k.keys, key)
}

func (k *Kernel) addLabel(pin, label string) {
	for _, l := range k.labels[pin] {
		if l == label {
			return
		}
	}
	k.labels[pin] = append(k.labels[pin], label)
}

// sourceFiles lists the kernel body first. Additional sources follow in
// postfix order, each at most once.
func (k *Kernel) sourceFiles() []diag.SourceFile {
	s := k.settings
	var files []diag.SourceFile
	visited := make(map[*kernel.Source]bool)
	pending := append([]*kernel.Source(nil), s.AdditionalSources...)

	if s.SourceOverride != nil {
		files = append(files, diag.SourceFile{Name: s.SourceOverride.Name, Text: s.SourceOverride.Text})
		visited[s.SourceOverride] = true
		pending = append(pending, s.SourceOverride.AdditionalSources...)
	} else {
		files = append(files,
			diag.SourceFile{Name: s.Name + "/ShaderSource", Text: s.ShaderSource},
			diag.SourceFile{Name: s.Name + "/ShaderFunctions", Text: s.ShaderFunctions},
		)
	}

	var ordered []*kernel.Source
	var traverse func(src *kernel.Source)
	traverse = func(src *kernel.Source) {
		if src == nil || visited[src] {
			return
		}
		visited[src] = true
		for _, nested := range src.AdditionalSources {
			traverse(nested)
		}
		ordered = append(ordered, src)
	}
	for _, src := range pending {
		traverse(src)
	}
	for _, src := range ordered {
		files = append(files, diag.SourceFile{Name: src.Name, Text: src.Text})
	}
	return files
}

// StaticStrings are the strings this kernel needs in the graph string table.
func (k *Kernel) StaticStrings() []string {
	strs := append([]string(nil), k.settings.StaticStrings...)
	for _, pin := range append(k.settings.InputLabels(), k.settings.OutputLabels()...) {
		strs = append(strs, k.labels[pin]...)
	}
	return strs
}
