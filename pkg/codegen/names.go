package codegen

import "strings"

const DefaultNodeTitle = "Custom HLSL"

const invalidEntryPointChars = "\"\\' ,.|&!~\n\r\t@#/(){}[]=;:^%$`-+*<>?"

// EntryPointName builds the kernel function name from the node title. The
// suffix keeps shader parameters that end in the title from colliding with
// the kernel name.
func EntryPointName(title, suffix string) string {
	if title == "" {
		title = DefaultNodeTitle
	}
	name := title
	if suffix != "" {
		name += "_" + suffix
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidEntryPointChars, r) {
			return '_'
		}
		return r
	}, name)
}

// ShaderPath is the virtual file path the generated `#line` directive
// reports, so shader compiler errors point back at the node.
func ShaderPath(graph, kernel string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune("\"\\ \n\r\t:", r) {
				return '_'
			}
			return r
		}, s)
	}
	return "/Engine/Generated/PCG/" + clean(graph) + "/" + clean(kernel) + ".usf"
}
