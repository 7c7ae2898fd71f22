package kernel

import (
	"fmt"
	"regexp"
	"strings"
)

// DataType is a mask over the data categories a pin can carry.
type DataType uint32

const (
	Point DataType = 1 << iota
	Param
	Texture
	RenderTarget
	Landscape

	DataNone     DataType = 0
	BaseTexture           = Texture | RenderTarget
	PointOrParam          = Point | Param
)

var dataTypeNames = []struct {
	t    DataType
	name string
}{
	{Point, "Point"},
	{Param, "Param"},
	{Texture, "Texture"},
	{RenderTarget, "RenderTarget"},
	{Landscape, "Landscape"},
}

var dataTypeAliases = []struct {
	t    DataType
	name string
}{
	{Param, "AttributeSet"},
	{BaseTexture, "BaseTexture"},
	{PointOrParam, "PointOrParam"},
}

func DataTypeNames() []string {
	names := make([]string, 0, len(dataTypeNames)+len(dataTypeAliases))
	for _, d := range dataTypeNames {
		names = append(names, d.name)
	}
	for _, a := range dataTypeAliases {
		names = append(names, a.name)
	}
	return names
}

func ParseDataType(name string) (DataType, bool) {
	for _, d := range dataTypeNames {
		if strings.EqualFold(d.name, name) {
			return d.t, true
		}
	}
	for _, a := range dataTypeAliases {
		if strings.EqualFold(a.name, name) {
			return a.t, true
		}
	}
	return DataNone, false
}

func (t DataType) String() string {
	if t == DataNone {
		return "None"
	}
	var parts []string
	for _, d := range dataTypeNames {
		if t&d.t != 0 {
			parts = append(parts, d.name)
		}
	}
	if rest := t &^ (Point | Param | Texture | RenderTarget | Landscape); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, " | ")
}

func (t DataType) Has(o DataType) bool { return t&o != 0 }

func (t DataType) AllowedAsInput() bool {
	return t != DataNone && t&^(PointOrParam|BaseTexture|Landscape) == 0
}

func (t DataType) AllowedAsOutput() bool {
	return t != DataNone && t&^(PointOrParam|BaseTexture) == 0
}

// AllowedInDataCollection reports whether data of this type lives in the
// packed data collection buffer rather than in a texture resource.
func (t DataType) AllowedInDataCollection() bool {
	return t != DataNone && t&^PointOrParam == 0
}

type AttributeType int

const (
	AttrInvalid AttributeType = iota
	AttrBool
	AttrInt
	AttrUint
	AttrFloat
	AttrFloat2
	AttrFloat3
	AttrFloat4
	AttrRotator
	AttrQuat
	AttrTransform
	AttrStringKey
	AttrName
)

var attributeTypeNames = [...]string{
	AttrInvalid:   "Invalid",
	AttrBool:      "Bool",
	AttrInt:       "Int",
	AttrUint:      "Uint",
	AttrFloat:     "Float",
	AttrFloat2:    "Float2",
	AttrFloat3:    "Float3",
	AttrFloat4:    "Float4",
	AttrRotator:   "Rotator",
	AttrQuat:      "Quat",
	AttrTransform: "Transform",
	AttrStringKey: "StringKey",
	AttrName:      "Name",
}

// AttributeTypes lists every resolvable attribute type in declaration order.
func AttributeTypes() []AttributeType {
	types := make([]AttributeType, 0, len(attributeTypeNames)-1)
	for t := AttrBool; t <= AttrName; t++ {
		types = append(types, t)
	}
	return types
}

func AttributeTypeNames() []string {
	names := make([]string, 0, len(attributeTypeNames)-1)
	for _, t := range AttributeTypes() {
		names = append(names, t.String())
	}
	return names
}

func (t AttributeType) String() string {
	if t < 0 || int(t) >= len(attributeTypeNames) {
		return "Invalid"
	}
	return attributeTypeNames[t]
}

func ParseAttributeType(name string) (AttributeType, bool) {
	for i, n := range attributeTypeNames {
		if i != int(AttrInvalid) && n == name {
			return AttributeType(i), true
		}
	}
	return AttrInvalid, false
}

// UsesStringKeys reports whether values of this type are indices into the
// graph string table.
func (t AttributeType) UsesStringKeys() bool { return t == AttrStringKey || t == AttrName }

type AttributeKey struct {
	Name string
	Type AttributeType
}

func (k AttributeKey) String() string { return k.Name + ":" + k.Type.String() }

var (
	selectorRe = regexp.MustCompile(`^[$@]?[A-Za-z0-9_][A-Za-z0-9_ ./:-]*$`)
	strictRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidAttributeName reports whether name can address an attribute. Strict
// names must be plain identifiers.
func ValidAttributeName(name string, strict bool) bool {
	if name == "" || name == "None" {
		return false
	}
	if strict {
		return strictRe.MatchString(name)
	}
	return selectorRe.MatchString(name)
}
