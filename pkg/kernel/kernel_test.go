package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypePredicates(t *testing.T) {
	cases := []struct {
		t                  DataType
		in, out, inCollect bool
	}{
		{Point, true, true, true},
		{PointOrParam, true, true, true},
		{Texture, true, true, false},
		{BaseTexture, true, true, false},
		{Landscape, true, false, false},
		{Point | Landscape, true, false, false},
		{DataNone, false, false, false},
		{DataType(1 << 10), false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.t.String(), func(t *testing.T) {
			assert.Equal(t, tc.in, tc.t.AllowedAsInput(), "input")
			assert.Equal(t, tc.out, tc.t.AllowedAsOutput(), "output")
			assert.Equal(t, tc.inCollect, tc.t.AllowedInDataCollection(), "data collection")
		})
	}
}

func TestParseDataType(t *testing.T) {
	dt, ok := ParseDataType("basetexture")
	assert.True(t, ok)
	assert.Equal(t, BaseTexture, dt)
	assert.Equal(t, "Texture | RenderTarget", dt.String())

	_, ok = ParseDataType("Volume")
	assert.False(t, ok)
}

func TestDataTypeNamesOrder(t *testing.T) {
	want := []string{"Point", "Param", "Texture", "RenderTarget", "Landscape", "AttributeSet", "BaseTexture", "PointOrParam"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, DataTypeNames())
	}
	for _, name := range want {
		_, ok := ParseDataType(name)
		assert.True(t, ok, name)
	}
}

func TestAttributeTypes(t *testing.T) {
	at, ok := ParseAttributeType("Float3")
	assert.True(t, ok)
	assert.Equal(t, AttrFloat3, at)

	_, ok = ParseAttributeType("Invalid")
	assert.False(t, ok, "Invalid is not a resolvable type")
	_, ok = ParseAttributeType("float")
	assert.False(t, ok, "type names are case sensitive")

	assert.NotContains(t, AttributeTypeNames(), "Invalid")
	assert.Equal(t, "Invalid", AttributeType(99).String())
	assert.True(t, AttrName.UsesStringKeys())
	assert.False(t, AttrInt.UsesStringKeys())
	assert.Equal(t, "Density:Float", AttributeKey{Name: "Density", Type: AttrFloat}.String())
}

func TestValidAttributeName(t *testing.T) {
	for _, name := range []string{"Density", "$Position", "@Last", "My Attr", "Ns:Sub/Leaf.x"} {
		assert.True(t, ValidAttributeName(name, false), name)
	}
	for _, name := range []string{"", "None", "-Lead", "Bad!"} {
		assert.False(t, ValidAttributeName(name, false), name)
	}
	assert.True(t, ValidAttributeName("Plain_1", true))
	assert.False(t, ValidAttributeName("My Attr", true))
	assert.False(t, ValidAttributeName("$Position", true))
}

func TestSettingsPredicates(t *testing.T) {
	s := &Settings{Type: Custom, DispatchThreadCount: DispatchFromFirstOutputPin}
	assert.True(t, s.ThreadCountMultiplierInUse())
	assert.False(t, s.PinDefinedByKernel(0))

	s.DispatchThreadCount = DispatchFixed
	assert.False(t, s.ThreadCountMultiplierInUse())

	s.Type = TextureGenerator
	assert.True(t, s.IsGenerator())
	assert.True(t, s.IsTextureKernel())
	assert.False(t, s.ThreadCountMultiplierInUse())
	assert.True(t, s.PinDefinedByKernel(0))
	assert.False(t, s.PinDefinedByKernel(1))
}

func TestDescriptions(t *testing.T) {
	tex := DataDesc{Type: Texture, ElementCount: 1, ElementCount2D: [2]int{8, 4}}
	assert.Equal(t, 32, tex.NumElements())

	pts := DataDesc{Type: Point, ElementCount: 10}
	pts.AddAttribute(AttributeDesc{Key: AttributeKey{Name: "A", Type: AttrInt}, ID: 32})
	pts.AddAttribute(AttributeDesc{Key: AttributeKey{Name: "A", Type: AttrFloat}, ID: 33, StringKeys: []int{1}})
	assert.Len(t, pts.Attributes, 1, "same name replaces")

	c := &DataCollectionDesc{Data: []DataDesc{pts, tex}}
	assert.Equal(t, 10, c.ElementCount(Point))
	assert.Equal(t, 42, c.ElementCount(Point|BaseTexture))
	assert.Equal(t, 0, (*DataCollectionDesc)(nil).ElementCount(Point))

	found, typed := c.ContainsAttribute(AttributeKey{Name: "A", Type: AttrInt})
	assert.True(t, found)
	assert.False(t, typed)

	clone := c.Clone()
	clone.Data[0].Attributes[0].StringKeys[0] = 7
	assert.Equal(t, 1, c.Data[0].Attributes[0].StringKeys[0])
	assert.Empty(t, (*DataCollectionDesc)(nil).Clone().Data)
}

func TestAddAttributeToAll(t *testing.T) {
	keyed := AttributeDesc{Key: AttributeKey{Name: "Biome", Type: AttrStringKey}, ID: 32, StringKeys: []int{1, 2}}
	c := &DataCollectionDesc{Data: []DataDesc{
		{Type: Point, ElementCount: 4, Attributes: []AttributeDesc{keyed}},
		{Type: Point, ElementCount: 2},
	}}

	c.AddAttributeToAll(AttributeDesc{Key: AttributeKey{Name: "Biome", Type: AttrStringKey}, ID: 32})
	a, ok := c.Data[0].Attribute("Biome")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, a.StringKeys, "same name and type keeps string keys")
	_, ok = c.Data[1].Attribute("Biome")
	assert.True(t, ok)

	c.AddAttributeToAll(AttributeDesc{Key: AttributeKey{Name: "Biome", Type: AttrInt}, ID: 33})
	for i := range c.Data {
		a, ok := c.Data[i].Attribute("Biome")
		require.True(t, ok)
		assert.Equal(t, AttrInt, a.Key.Type, "a new type replaces the old one")
		assert.Empty(t, a.StringKeys)
	}
}
