package validator

import (
	"strings"

	"github.com/xplshn/pcgk/pkg/config"
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
	"github.com/xplshn/pcgk/pkg/token"
)

type Kernel interface {
	Name() string
	Settings() *kernel.Settings
	ParsedSources() []*parser.ParsedSource
	AttributeKeys() []kernel.AttributeKey
}

// Validator runs the checks that must pass before a kernel is generated. The
// first failed check logs an error and stops validation.
type Validator struct {
	k   Kernel
	s   *kernel.Settings
	cfg *config.Config
	log *diag.Log
}

func New(k Kernel, cfg *config.Config, log *diag.Log) *Validator {
	return &Validator{k: k, s: k.Settings(), cfg: cfg, log: log}
}

func Static(k Kernel, cfg *config.Config, log *diag.Log) bool {
	return New(k, cfg, log).Static()
}

func (v *Validator) errorf(format string, args ...any) bool {
	v.log.Errorf(v.k.Name(), format, args...)
	return false
}

func (v *Validator) Static() bool {
	s := v.s
	if len(s.OutputPins) == 0 {
		return v.errorf("Kernel must have at least one output pin.")
	}

	labels := make(map[string]bool)
	checkLabel := func(label string) bool {
		if label == "" || label == "None" {
			return v.errorf("Pins must have a label, '%s' is not a valid pin label.", label)
		}
		if labels[label] {
			return v.errorf("Duplicate pin label '%s', all pin labels must be unique.", label)
		}
		labels[label] = true
		return true
	}

	for i, in := range s.InputPins {
		if !checkLabel(in.Label) {
			return false
		}
		if i == 0 {
			switch s.Type {
			case kernel.PointProcessor:
				if in.AllowedTypes != kernel.Point {
					return v.errorf("Point Processor kernels require the first input pin '%s' to be of type Point, got '%s'.", in.Label, in.AllowedTypes)
				}
			case kernel.TextureProcessor:
				if !in.AllowedTypes.Has(kernel.BaseTexture) {
					return v.errorf("Texture Processor kernels require the first input pin '%s' to be a texture, got '%s'.", in.Label, in.AllowedTypes)
				}
			}
		}
		if !in.AllowedTypes.AllowedAsInput() {
			return v.errorf("Input pin '%s' has type '%s' which is not supported as a kernel input.", in.Label, in.AllowedTypes)
		}
	}

	inputLabels := s.InputLabels()
	for i, out := range s.OutputPins {
		if !checkLabel(out.Label) {
			return false
		}
		if i == 0 {
			if s.IsPointKernel() && out.AllowedTypes != kernel.Point {
				return v.errorf("Point kernels require the first output pin '%s' to be of type Point, got '%s'.", out.Label, out.AllowedTypes)
			}
			if s.IsTextureKernel() && !out.AllowedTypes.Has(kernel.BaseTexture) {
				return v.errorf("Texture kernels require the first output pin '%s' to be a texture, got '%s'.", out.Label, out.AllowedTypes)
			}
		}
		if !out.AllowedTypes.AllowedAsOutput() {
			return v.errorf("Output pin '%s' has type '%s' which is not supported as a kernel output.", out.Label, out.AllowedTypes)
		}
		if s.PinDefinedByKernel(i) {
			continue
		}
		if !v.checkOutputProperties(out, inputLabels) {
			return false
		}
	}

	if s.Type == kernel.Custom && s.DispatchThreadCount == kernel.DispatchFromProductOfInputPins {
		if len(s.ThreadCountInputPinLabels) == 0 {
			return v.errorf("Thread count is the product of input pins, but no input pins are listed.")
		}
		for _, label := range s.ThreadCountInputPinLabels {
			if _, ok := s.InputPin(label); !ok {
				return v.errorf("Thread count input pin '%s' does not exist%s.", label, diag.Suggest(label, inputLabels))
			}
		}
	}

	if s.ThreadCountMultiplierInUse() && s.ThreadCountMultiplier < 1 {
		return v.errorf("Thread count multiplier must be at least 1, got %d.", s.ThreadCountMultiplier)
	}

	for _, key := range v.k.AttributeKeys() {
		if key.Type == kernel.AttrInvalid {
			return v.errorf("Attribute '%s' has an invalid type.", key.Name)
		}
	}

	if !v.checkOutputsWritten() {
		return false
	}
	v.checkUnusedInputs()
	return true
}

func (v *Validator) checkOutputProperties(out kernel.PinPropertiesGPU, inputLabels []string) bool {
	p := out.Properties
	if p.InitMode == kernel.InitFromInputPins {
		if len(p.InitFromPins) == 0 {
			return v.errorf("Output pin '%s' is initialized from input pins, but no input pins are listed.", out.Label)
		}
		for _, label := range p.InitFromPins {
			in, ok := v.s.InputPin(label)
			if !ok {
				return v.errorf("Output pin '%s' is initialized from input pin '%s', which does not exist%s.", out.Label, label, diag.Suggest(label, inputLabels))
			}
			if !in.AllowedTypes.AllowedAsOutput() {
				return v.errorf("Output pin '%s' is initialized from input pin '%s' of type '%s', which cannot be output.", out.Label, label, in.AllowedTypes)
			}
		}
	}

	custom := p.InitMode == kernel.InitCustom
	if (custom || p.DataCountMode == kernel.CountFixed) && p.DataCount < 1 {
		return v.errorf("Output pin '%s' has a fixed data count of %d, it must be at least 1.", out.Label, p.DataCount)
	}
	if custom || p.ElementCountMode == kernel.CountFixed {
		if out.AllowedTypes.Has(kernel.BaseTexture) {
			if min(p.ElementCount2D[0], p.ElementCount2D[1]) < 1 {
				return v.errorf("Output pin '%s' has a fixed texture size of %dx%d, both dimensions must be at least 1.", out.Label, p.ElementCount2D[0], p.ElementCount2D[1])
			}
		} else if p.ElementCount < 1 {
			return v.errorf("Output pin '%s' has a fixed element count of %d, it must be at least 1.", out.Label, p.ElementCount)
		}
	}
	if p.ElementCountMultiplier < 1 {
		return v.errorf("Output pin '%s' has an element count multiplier of %d, it must be at least 1.", out.Label, p.ElementCountMultiplier)
	}
	return true
}

func (v *Validator) checkOutputsWritten() bool {
	written := make(map[string]bool)
	for _, ps := range v.k.ParsedSources() {
		for pin := range ps.InitializedOutputPins {
			written[pin] = true
		}
	}
	for i, out := range v.s.OutputPins {
		if v.s.PinDefinedByKernel(i) || written[out.Label] {
			continue
		}
		if v.s.MuteUnwrittenPinDataErrors {
			v.log.Warn(v.cfg, config.WarnUnwrittenPin, v.k.Name(), nil, token.Range{},
				"Data on pin '%s' may be uninitialized.", out.Label)
			continue
		}
		return v.errorf("Data on pin '%s' may be uninitialized. Write it with a Set, CopyElementFrom, Initialize or Store call, or mute this error in the kernel settings.", out.Label)
	}
	return true
}

func (v *Validator) checkUnusedInputs() {
	for i, in := range v.s.InputPins {
		if i == 0 && v.s.IsProcessor() {
			continue
		}
		used := false
		for _, ps := range v.k.ParsedSources() {
			if strings.Contains(ps.Source, in.Label+"_") {
				used = true
				break
			}
		}
		if !used {
			v.log.Warn(v.cfg, config.WarnUnusedPin, v.k.Name(), nil, token.Range{}, "Input pin '%s' is never used.", in.Label)
		}
	}
}
