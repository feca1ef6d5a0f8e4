package script

import "github.com/AntDeM/S7-DB-Simulator/internal/plc"

// Store is the subset of the DB Memory Store the Script Engine depends
// on, kept narrow so tests can supply a fake without pulling in
// internal/store.
type Store interface {
	Read(db uint32, offset int, t plc.TypeTag, bit *int) (interface{}, error)
	Write(db uint32, offset int, t plc.TypeTag, value interface{}, bit *int) error
}

// Resolver looks up a field definition by (db, name), the way SET and
// WAIT_UNTIL address fields symbolically in the script grammar.
type Resolver interface {
	FieldByName(db uint32, name string) (plc.FieldDef, bool)
}

// DefResolver is the default Resolver, built from the validated DB
// definitions used to construct the simulator.
type DefResolver struct {
	byNumber map[uint32]*plc.DBDef
}

// NewDefResolver indexes defs by DB number for FieldByName lookups.
func NewDefResolver(defs []plc.DBDef) *DefResolver {
	r := &DefResolver{byNumber: make(map[uint32]*plc.DBDef, len(defs))}
	for i := range defs {
		r.byNumber[defs[i].Number] = &defs[i]
	}
	return r
}

func (r *DefResolver) FieldByName(db uint32, name string) (plc.FieldDef, bool) {
	dbDef, ok := r.byNumber[db]
	if !ok {
		return plc.FieldDef{}, false
	}
	f := dbDef.FieldByName(name)
	if f == nil {
		return plc.FieldDef{}, false
	}
	return *f, true
}
