package kernel

type AttributeDesc struct {
	Key        AttributeKey
	ID         int
	StringKeys []int
}

type DataDesc struct {
	Type           DataType
	ElementCount   int
	ElementCount2D [2]int
	Attributes     []AttributeDesc
	Tags           []int
}

// NumElements is the number of threads' worth of elements in the data.
func (d *DataDesc) NumElements() int {
	if d.Type.Has(BaseTexture) && !d.Type.Has(PointOrParam) {
		return d.ElementCount2D[0] * d.ElementCount2D[1]
	}
	return d.ElementCount
}

// AddAttribute replaces any attribute with the same name.
func (d *DataDesc) AddAttribute(a AttributeDesc) {
	for i := range d.Attributes {
		if d.Attributes[i].Key.Name == a.Key.Name {
			d.Attributes[i] = a
			return
		}
	}
	d.Attributes = append(d.Attributes, a)
}

func (d *DataDesc) Attribute(name string) (*AttributeDesc, bool) {
	for i := range d.Attributes {
		if d.Attributes[i].Key.Name == name {
			return &d.Attributes[i], true
		}
	}
	return nil, false
}

func (d DataDesc) Clone() DataDesc {
	c := d
	c.Attributes = make([]AttributeDesc, len(d.Attributes))
	for i, a := range d.Attributes {
		a.StringKeys = append([]int(nil), a.StringKeys...)
		c.Attributes[i] = a
	}
	c.Tags = append([]int(nil), d.Tags...)
	return c
}

type DataCollectionDesc struct {
	Data []DataDesc
}

// ElementCount sums the elements of every data item whose type intersects types.
func (c *DataCollectionDesc) ElementCount(types DataType) int {
	if c == nil {
		return 0
	}
	n := 0
	for i := range c.Data {
		if c.Data[i].Type&types != 0 {
			n += c.Data[i].NumElements()
		}
	}
	return n
}

// AddAttributeToAll adds a to every data item. Items already carrying the
// same name and type keep their description, string keys included.
func (c *DataCollectionDesc) AddAttributeToAll(a AttributeDesc) {
	for i := range c.Data {
		if existing, ok := c.Data[i].Attribute(a.Key.Name); ok && existing.Key.Type == a.Key.Type {
			continue
		}
		c.Data[i].AddAttribute(a)
	}
}

// ContainsAttribute reports whether any data item carries name, and whether
// one of them carries it with the given type.
func (c *DataCollectionDesc) ContainsAttribute(key AttributeKey) (nameFound, typeMatched bool) {
	if c == nil {
		return false, false
	}
	for i := range c.Data {
		if a, ok := c.Data[i].Attribute(key.Name); ok {
			nameFound = true
			if a.Key.Type == key.Type {
				return true, true
			}
		}
	}
	return nameFound, false
}

func (c *DataCollectionDesc) Clone() *DataCollectionDesc {
	if c == nil {
		return &DataCollectionDesc{}
	}
	out := &DataCollectionDesc{Data: make([]DataDesc, len(c.Data))}
	for i, d := range c.Data {
		out.Data[i] = d.Clone()
	}
	return out
}
