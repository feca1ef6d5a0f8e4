package main

import (
	"github.com/juju/errors"

	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
	"github.com/AntDeM/S7-DB-Simulator/internal/plcconfig"
)

// loadAndValidate loads the configuration tree at path (dispatching on
// extension), validates it, and promotes it to the strict domain model.
func loadAndValidate(path string) ([]plc.DBDef, *plcconfig.Tree, error) {
	codec, err := plcconfig.CodecFor(path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	tree, err := codec.Load(path)
	if err != nil {
		return nil, nil, errors.Annotate(err, "loading config")
	}
	if err := plcconfig.Validate(tree); err != nil {
		return nil, nil, err
	}
	defs, err := plcconfig.ToDBDefs(tree)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return defs, tree, nil
}
