package codegen

import (
	"fmt"
	"sort"
	"strings"
)

// Replacement swaps src[Begin:End] for Text.
type Replacement struct {
	Begin int
	End   int
	Text  string
}

// Apply performs every replacement against the original offsets. They are
// applied from the last to the first, so earlier offsets stay valid.
func Apply(src string, reps []Replacement) (string, error) {
	sorted := append([]Replacement(nil), reps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })

	for i, r := range sorted {
		if r.Begin < 0 || r.End < r.Begin || r.End > len(src) {
			return src, fmt.Errorf("replacement [%d, %d) is out of range for a source of %d bytes", r.Begin, r.End, len(src))
		}
		if i > 0 && sorted[i-1].End > r.Begin {
			return src, fmt.Errorf("replacements [%d, %d) and [%d, %d) overlap", sorted[i-1].Begin, sorted[i-1].End, r.Begin, r.End)
		}
	}

	out := src
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		out = out[:r.Begin] + r.Text + out[r.End:]
	}
	return out, nil
}

// copyElementMacro rewrites Target_CopyElementFrom_Source( into the attribute
// copy macro. It works on text, so it runs after the offset based pass.
func copyElementMacro(src, target, source string) string {
	return strings.ReplaceAll(src,
		target+"_CopyElementFrom_"+source+"(",
		"PCG_COPY_ALL_ATTRIBUTES_TO_OUTPUT("+target+", "+source+", ")
}
