package lexer

// Operators in the order they are tried. Longer entries come before any of
// their prefixes.
var operators = []string{
	"<<=", ">>=",
	"/*", "*/", "//", "::", "+=", "++", "--", "-=", "->", "!=", "&=", "*=", "/=", "%=",
	"<<", "<=", ">>", ">=", "==", "&&", "^=", "|=", "||",
	"\"", "'", ":", "+", "-", "(", ")", "[", "]", ".", "!", "~", "&", "*", "/", "%",
	"<", ">", "^", "|", "?", "=",
}

var hlslKeywords = []string{
	// types
	"bool", "bool2", "bool3", "bool4",
	"int", "int2", "int3", "int4",
	"uint", "uint2", "uint3", "uint4",
	"half", "half2", "half3", "half4",
	"float", "float2", "float3", "float4",
	"double", "double2", "double3", "double4",
	"float2x2", "float3x3", "float4x4", "float3x4", "float4x3",
	"min16float", "min16int", "min16uint",
	"matrix", "vector", "void", "string",
	"Buffer", "RWBuffer", "StructuredBuffer", "RWStructuredBuffer",
	"ByteAddressBuffer", "RWByteAddressBuffer",
	"Texture1D", "Texture2D", "Texture3D", "TextureCube", "Texture2DArray",
	"RWTexture1D", "RWTexture2D", "RWTexture3D", "RWTexture2DArray",
	"SamplerState", "SamplerComparisonState",
	// storage and qualifiers
	"const", "static", "extern", "uniform", "volatile", "inline", "precise",
	"groupshared", "shared", "in", "out", "inout", "row_major", "column_major",
	"nointerpolation", "linear", "centroid", "noperspective", "sample",
	"cbuffer", "tbuffer", "struct", "typedef", "register", "packoffset",
	"namespace", "interface", "class", "template",
	// control flow
	"if", "else", "for", "while", "do", "switch", "case", "default",
	"break", "continue", "return", "discard",
	// literals
	"true", "false", "NULL",
	// attributes
	"numthreads", "unroll", "loop", "branch", "flatten", "fastopt", "allow_uav_condition",
}
