package codegen

import "github.com/xplshn/pcgk/pkg/kernel"

type PinDescs interface {
	InputDesc(label string) *kernel.DataCollectionDesc
	OutputDesc(label string) *kernel.DataCollectionDesc
}

// ThreadCount is the number of threads to dispatch for a kernel once the
// data bound to its pins is known.
func ThreadCount(s *kernel.Settings, descs PinDescs) int {
	count := 0
	inputElements := func(pin *kernel.PinProperties) int {
		return descs.InputDesc(pin.Label).ElementCount(pin.AllowedTypes)
	}

	switch s.Type {
	case kernel.PointGenerator:
		count = s.PointCount
	case kernel.TextureGenerator:
		count = s.NumElements2D[0] * s.NumElements2D[1]
	case kernel.PointProcessor, kernel.TextureProcessor:
		if in := s.FirstInputPin(); in != nil {
			count = inputElements(in)
		}
	case kernel.Custom:
		switch s.DispatchThreadCount {
		case kernel.DispatchFromFirstOutputPin:
			if out := s.FirstOutputPin(); out != nil {
				if desc := descs.OutputDesc(out.Label); desc != nil {
					count = out.Properties.ElementCountMultiplier * desc.ElementCount(out.AllowedTypes)
				}
			}
		case kernel.DispatchFromProductOfInputPins:
			for _, label := range s.ThreadCountInputPinLabels {
				if in, ok := s.InputPin(label); ok {
					count = max(count, 1) * inputElements(in)
				}
			}
		case kernel.DispatchFixed:
			count = s.FixedThreadCount
		}
	}

	if s.ThreadCountMultiplierInUse() {
		count *= s.ThreadCountMultiplier
	}
	return count
}
