package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/pcgk/pkg/kernel"
)

func threadInfo(sb *strings.Builder, pin string) {
	fmt.Fprintf(sb, "    uint %s_DataIndex;\n", pin)
	fmt.Fprintf(sb, "    if (!%s_GetThreadData(ThreadIndex, %s_DataIndex, ElementIndex)) return;\n", pin, pin)
}

// Preamble is the per kernel type setup that runs before the user source. It
// resolves the element index and, for processors, initializes the first
// output from the first input.
func Preamble(s *kernel.Settings) string {
	var sb strings.Builder
	sb.WriteString("    // Kernel preamble\n")

	in, out := s.FirstInputPin(), s.FirstOutputPin()
	switch s.Type {
	case kernel.PointProcessor:
		if in == nil || out == nil {
			break
		}
		sb.WriteString("    uint ElementIndex; // Assumption - element index identical in input and output data.\n")
		threadInfo(&sb, in.Label)
		threadInfo(&sb, out.Label)
		fmt.Fprintf(&sb, "    if (%s_IsPointRemoved(%s_DataIndex, ElementIndex))\n", in.Label, in.Label)
		sb.WriteString("    {\n")
		fmt.Fprintf(&sb, "        %s_RemovePoint(%s_DataIndex, ElementIndex);\n", out.Label, out.Label)
		sb.WriteString("        return;\n")
		sb.WriteString("    }\n")
		sb.WriteString("\n    // Point processor always initializes outputs by copying input data elements.\n")
		fmt.Fprintf(&sb, "    PCG_COPY_ALL_ATTRIBUTES_TO_OUTPUT(%s, %s, %s_DataIndex, ElementIndex, %s_DataIndex, ElementIndex);\n",
			out.Label, in.Label, out.Label, in.Label)

	case kernel.PointGenerator:
		fmt.Fprintf(&sb, "    const uint NumElements = %d;\n", s.PointCount)
		sb.WriteString("    // NumPoints is deprecated.\n")
		sb.WriteString("    const uint NumPoints = NumElements;\n")
		if out == nil {
			break
		}
		sb.WriteString("    uint ElementIndex; // Assumption - element index identical in input and output data.\n")
		threadInfo(&sb, out.Label)
		fmt.Fprintf(&sb, "\n    // Initialize all values to defaults for output pin %s\n", out.Label)
		fmt.Fprintf(&sb, "    %s_InitializePoint(%s_DataIndex, ElementIndex);\n", out.Label, out.Label)

	case kernel.TextureProcessor:
		if in == nil || out == nil {
			break
		}
		sb.WriteString("    uint2 ElementIndex; // Assumption - texel index identical in input and output data.\n")
		threadInfo(&sb, in.Label)
		threadInfo(&sb, out.Label)
		sb.WriteString("\n    // Texture processor always initializes outputs by copying the input texture.\n")
		fmt.Fprintf(&sb, "    %s_Store(%s_DataIndex, ElementIndex, %s_Load(%s_DataIndex, ElementIndex));\n",
			out.Label, out.Label, in.Label, in.Label)

	case kernel.TextureGenerator:
		fmt.Fprintf(&sb, "    const uint2 NumElements = uint2(%d, %d);\n", s.NumElements2D[0], s.NumElements2D[1])
		if out == nil {
			break
		}
		sb.WriteString("    uint2 ElementIndex; // Assumption - texel index identical in input and output data.\n")
		threadInfo(&sb, out.Label)
		fmt.Fprintf(&sb, "\n    // Zero-initialize for output pin %s\n", out.Label)
		fmt.Fprintf(&sb, "    %s_Store(%s_DataIndex, ElementIndex, (float4)0.0f);\n", out.Label, out.Label)
	}
	return sb.String()
}
