package kernel

type KernelType int

const (
	PointProcessor KernelType = iota
	PointGenerator
	TextureProcessor
	TextureGenerator
	Custom
)

var kernelTypeNames = [...]string{
	PointProcessor:   "PointProcessor",
	PointGenerator:   "PointGenerator",
	TextureProcessor: "TextureProcessor",
	TextureGenerator: "TextureGenerator",
	Custom:           "Custom",
}

func (t KernelType) String() string {
	if t < 0 || int(t) >= len(kernelTypeNames) {
		return "Unknown"
	}
	return kernelTypeNames[t]
}

func KernelTypeNames() []string { return kernelTypeNames[:] }

func ParseKernelType(name string) (KernelType, bool) {
	for i, n := range kernelTypeNames {
		if n == name {
			return KernelType(i), true
		}
	}
	return 0, false
}

type DispatchMode int

const (
	DispatchFromFirstOutputPin DispatchMode = iota
	DispatchFromProductOfInputPins
	DispatchFixed
)

var DispatchModeNames = map[string]DispatchMode{
	"FromFirstOutputPin":     DispatchFromFirstOutputPin,
	"FromProductOfInputPins": DispatchFromProductOfInputPins,
	"Fixed":                  DispatchFixed,
}

type InitMode int

const (
	InitFromInputPins InitMode = iota
	InitCustom
)

var InitModeNames = map[string]InitMode{
	"FromInputPins": InitFromInputPins,
	"Custom":        InitCustom,
}

type CountMode int

const (
	CountFromInputPins CountMode = iota
	CountFixed
)

var CountModeNames = map[string]CountMode{
	"FromInputPins": CountFromInputPins,
	"Fixed":         CountFixed,
}

type DataMultiplicity int

const (
	Pairwise DataMultiplicity = iota
	CartesianProduct
)

var DataMultiplicityNames = map[string]DataMultiplicity{
	"Pairwise":         Pairwise,
	"CartesianProduct": CartesianProduct,
}

type ElementMultiplicity int

const (
	ElementProduct ElementMultiplicity = iota
	ElementSum
)

var ElementMultiplicityNames = map[string]ElementMultiplicity{
	"Product": ElementProduct,
	"Sum":     ElementSum,
}

type PinProperties struct {
	Label        string
	AllowedTypes DataType
}

type GPUProperties struct {
	InitMode               InitMode
	InitFromPins           []string
	DataCountMode          CountMode
	DataMultiplicity       DataMultiplicity
	DataCount              int
	ElementCountMode       CountMode
	ElementMultiplicity    ElementMultiplicity
	ElementCount           int
	ElementCount2D         [2]int
	ElementCountMultiplier int
	CreatedAttributes      []AttributeKey
}

// DefaultGPUProperties matches a freshly added output pin.
func DefaultGPUProperties() GPUProperties {
	return GPUProperties{
		DataCount:              1,
		ElementCount:           1,
		ElementCount2D:         [2]int{1, 1},
		ElementCountMultiplier: 1,
	}
}

type PinPropertiesGPU struct {
	PinProperties
	Properties GPUProperties
}

// Source is an additional shader source. Nested sources are emitted before
// the source that includes them.
type Source struct {
	Name              string
	Text              string
	AdditionalSources []*Source
}

type Settings struct {
	Name  string
	Title string
	Type  KernelType

	InputPins  []PinProperties
	OutputPins []PinPropertiesGPU

	PointCount    int
	NumElements2D [2]int

	DispatchThreadCount       DispatchMode
	FixedThreadCount          int
	ThreadCountMultiplier     int
	ThreadCountInputPinLabels []string

	MuteUnwrittenPinDataErrors bool

	ShaderSource      string
	ShaderFunctions   string
	SourceOverride    *Source
	AdditionalSources []*Source

	StaticStrings []string
}

func (s *Settings) IsProcessor() bool {
	return s.Type == PointProcessor || s.Type == TextureProcessor
}

func (s *Settings) IsGenerator() bool {
	return s.Type == PointGenerator || s.Type == TextureGenerator
}

func (s *Settings) IsPointKernel() bool {
	return s.Type == PointProcessor || s.Type == PointGenerator
}

func (s *Settings) IsTextureKernel() bool {
	return s.Type == TextureProcessor || s.Type == TextureGenerator
}

func (s *Settings) ThreadCountMultiplierInUse() bool {
	return s.Type == Custom && s.DispatchThreadCount != DispatchFixed
}

// PinDefinedByKernel reports whether the output pin at index i is shaped by the
// kernel type rather than by its GPU properties.
func (s *Settings) PinDefinedByKernel(i int) bool {
	return i == 0 && (s.IsProcessor() || s.IsGenerator())
}

func (s *Settings) InputPin(label string) (*PinProperties, bool) {
	for i := range s.InputPins {
		if s.InputPins[i].Label == label {
			return &s.InputPins[i], true
		}
	}
	return nil, false
}

func (s *Settings) OutputPin(label string) (*PinPropertiesGPU, bool) {
	for i := range s.OutputPins {
		if s.OutputPins[i].Label == label {
			return &s.OutputPins[i], true
		}
	}
	return nil, false
}

func (s *Settings) FirstInputPin() *PinProperties {
	if len(s.InputPins) == 0 {
		return nil
	}
	return &s.InputPins[0]
}

func (s *Settings) FirstOutputPin() *PinPropertiesGPU {
	if len(s.OutputPins) == 0 {
		return nil
	}
	return &s.OutputPins[0]
}

func (s *Settings) InputLabels() []string {
	labels := make([]string, len(s.InputPins))
	for i, p := range s.InputPins {
		labels[i] = p.Label
	}
	return labels
}

func (s *Settings) OutputLabels() []string {
	labels := make([]string, len(s.OutputPins))
	for i, p := range s.OutputPins {
		labels[i] = p.Label
	}
	return labels
}
