package plc

// FieldDef describes a single named, typed slot within a DB.
type FieldDef struct {
	Name   string
	Type   TypeTag
	Offset int
	Bit    *int // non-nil only meaningful when Type.Kind == KindBool
	Value  *string
}

// DBDef describes a single numbered Data Block and its fields, in the
// order they appeared in the configuration.
type DBDef struct {
	Number uint32
	Name   string
	Fields []FieldDef
}

// FieldByName returns the field with the given name, or nil.
func (d *DBDef) FieldByName(name string) *FieldDef {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// SizeOf computes the required DB buffer length: the maximum of
// offset+sizeof(type) across all fields, per spec.md §3/§4.2.
func SizeOf(fields []FieldDef) int {
	max := 0
	for _, f := range fields {
		end := f.Offset + f.Type.Size()
		if end > max {
			max = end
		}
	}
	return max
}
