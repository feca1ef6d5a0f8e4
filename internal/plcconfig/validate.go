// Package plcconfig implements the Config Validator and the configuration
// codec (YAML hierarchical / CSV tabular) over the DB/Field domain model in
// internal/plc.
package plcconfig

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/AntDeM/S7-DB-Simulator/internal/codec"
	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
)

// InvalidConfigError is the first validation violation encountered, per
// spec.md §4.3's "reports the first violation it encounters" contract.
type InvalidConfigError struct {
	Path   string
	Reason string

	err error
}

func (e *InvalidConfigError) Error() string { return e.err.Error() }
func (e *InvalidConfigError) Unwrap() error { return e.err }
func (e *InvalidConfigError) Cause() error  { return errors.Cause(e.err) }

func invalidConfig(path, reason string) error {
	return &InvalidConfigError{
		Path: path, Reason: reason,
		err: errors.Errorf("invalid config at %s: %s", path, reason),
	}
}

// Tree is the parsed, pre-validation shape of a configuration document —
// deliberately loose (unvalidated offsets/types as raw strings) so
// Validate can report the exact first violation per spec.md §4.3, the way
// a hand-rolled YAML tree walk would see it before being promoted to the
// strict plc.DBDef/FieldDef model.
type Tree struct {
	DBs []DBEntry `yaml:"dbs"`
}

// DBEntry is one entry under the dbs: key.
type DBEntry struct {
	DBNumber *uint32      `yaml:"db_number"`
	Name     string       `yaml:"name,omitempty"`
	Fields   []FieldEntry `yaml:"fields"`
}

// FieldEntry is one entry under a DB's fields: key.
type FieldEntry struct {
	Name   string  `yaml:"name"`
	Type   string  `yaml:"type"`
	Offset *int    `yaml:"offset"`
	Bit    *int    `yaml:"bit,omitempty"`
	Value  *string `yaml:"value,omitempty"`
}

// Validate walks tree and reports the first violation found, in the exact
// order spec.md §4.3 lists: dbs present -> db_number/fields required and
// unique -> field name/type/offset required/unique/non-negative -> type
// grammar -> value/type compatibility.
func Validate(tree *Tree) error {
	if tree == nil || tree.DBs == nil {
		return invalidConfig("$", "root must carry a list under key \"dbs\"")
	}

	seenDB := make(map[uint32]bool, len(tree.DBs))
	for i, db := range tree.DBs {
		path := fmt.Sprintf("$.dbs[%d]", i)
		if db.DBNumber == nil {
			return invalidConfig(path, "db_number is required")
		}
		if db.Fields == nil {
			return invalidConfig(path, "fields is required")
		}
		if seenDB[*db.DBNumber] {
			return invalidConfig(path, fmt.Sprintf("db_number %d is not unique", *db.DBNumber))
		}
		seenDB[*db.DBNumber] = true

		if err := validateFields(path, db.Fields); err != nil {
			return err
		}
	}
	return nil
}

func validateFields(dbPath string, fields []FieldEntry) error {
	seenName := make(map[string]bool, len(fields))
	for i, f := range fields {
		path := fmt.Sprintf("%s.fields[%d]", dbPath, i)
		if f.Name == "" {
			return invalidConfig(path, "name is required")
		}
		if f.Type == "" {
			return invalidConfig(path, "type is required")
		}
		if f.Offset == nil {
			return invalidConfig(path, "offset is required")
		}
		if seenName[f.Name] {
			return invalidConfig(path, fmt.Sprintf("field name %q is not unique within its db", f.Name))
		}
		seenName[f.Name] = true
		if *f.Offset < 0 {
			return invalidConfig(path, "offset must be non-negative")
		}

		tag, err := plc.ParseTypeTag(f.Type)
		if err != nil {
			return invalidConfig(path, fmt.Sprintf("type %q does not match the type-tag grammar: %v", f.Type, err))
		}

		if f.Bit != nil && (*f.Bit < 0 || *f.Bit > 7) {
			return invalidConfig(path, "bit must be in range 0..7")
		}

		if f.Value != nil {
			if err := validateValueCompat(tag, *f.Value); err != nil {
				return invalidConfig(path, fmt.Sprintf("value %q is not compatible with type %s: %v", *f.Value, tag, err))
			}
		}
	}
	return nil
}

// validateValueCompat reuses the codec's own Pack to decide compatibility:
// a value that the codec can encode for this type is, by construction,
// compatible with it (spec.md §4.3's last bullet). STRING/WSTRING are
// checked separately since Pack silently truncates over-length values
// (spec.md §4.1) while config validation must reject them (spec.md §4.3:
// "a string of length ≤ n").
func validateValueCompat(tag plc.TypeTag, value string) error {
	if tag.Kind == plc.KindString || tag.Kind == plc.KindWString {
		if len([]rune(value)) > tag.N {
			return errors.Errorf("string length %d exceeds n=%d", len([]rune(value)), tag.N)
		}
	}
	_, err := codec.Pack(tag, value)
	if err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ToDBDefs promotes a validated Tree into the strict internal/plc domain
// model. Callers must call Validate first; ToDBDefs does not re-validate.
func ToDBDefs(tree *Tree) ([]plc.DBDef, error) {
	defs := make([]plc.DBDef, 0, len(tree.DBs))
	for _, db := range tree.DBs {
		fields := make([]plc.FieldDef, 0, len(db.Fields))
		for _, f := range db.Fields {
			tag, err := plc.ParseTypeTag(f.Type)
			if err != nil {
				return nil, errors.Trace(err)
			}
			fields = append(fields, plc.FieldDef{
				Name:   f.Name,
				Type:   tag,
				Offset: *f.Offset,
				Bit:    f.Bit,
				Value:  f.Value,
			})
		}
		defs = append(defs, plc.DBDef{
			Number: *db.DBNumber,
			Name:   db.Name,
			Fields: fields,
		})
	}
	return defs, nil
}
