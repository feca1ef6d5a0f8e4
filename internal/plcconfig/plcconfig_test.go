package plcconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntDeM/S7-DB-Simulator/internal/plcconfig"
)

func u32p(v uint32) *uint32 { return &v }
func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func sampleTree() *plcconfig.Tree {
	return &plcconfig.Tree{
		DBs: []plcconfig.DBEntry{
			{
				DBNumber: u32p(1),
				Name:     "Status",
				Fields: []plcconfig.FieldEntry{
					{Name: "Speed", Type: "INT", Offset: intp(4)},
					{Name: "Running", Type: "BOOL", Offset: intp(0), Bit: intp(3), Value: strp("true")},
					{Name: "Label", Type: "STRING[8]", Offset: intp(16)},
				},
			},
		},
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	require.NoError(t, plcconfig.Validate(sampleTree()))
}

func TestValidateRejectsMissingDBs(t *testing.T) {
	err := plcconfig.Validate(&plcconfig.Tree{})
	require.Error(t, err)
	var ic *plcconfig.InvalidConfigError
	require.ErrorAs(t, err, &ic)
}

func TestValidateRejectsDuplicateDBNumber(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "a", Type: "BYTE", Offset: intp(0)}}},
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "b", Type: "BYTE", Offset: intp(0)}}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateFieldName(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{
			{Name: "a", Type: "BYTE", Offset: intp(0)},
			{Name: "a", Type: "BYTE", Offset: intp(1)},
		}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestValidateRejectsNegativeOffset(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "a", Type: "BYTE", Offset: intp(-1)}}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestValidateRejectsBadTypeGrammar(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "a", Type: "NOT_A_TYPE", Offset: intp(0)}}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestValidateRejectsIncompatibleValue(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "a", Type: "INT", Offset: intp(0), Value: strp("not-a-number")}}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestValidateRejectsOverLengthStringValue(t *testing.T) {
	tree := &plcconfig.Tree{DBs: []plcconfig.DBEntry{
		{DBNumber: u32p(1), Fields: []plcconfig.FieldEntry{{Name: "a", Type: "STRING[4]", Offset: intp(0), Value: strp("too long")}}},
	}}
	err := plcconfig.Validate(tree)
	require.Error(t, err)
}

func TestToDBDefs(t *testing.T) {
	defs, err := plcconfig.ToDBDefs(sampleTree())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Equal(t, uint32(1), defs[0].Number)
	require.Len(t, defs[0].Fields, 3)
}

func TestYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	tree := sampleTree()
	require.NoError(t, plcconfig.Validate(tree))

	codec := plcconfig.YAMLCodec{}
	require.NoError(t, codec.Save(path, tree))

	loaded, err := codec.Load(path)
	require.NoError(t, err)
	require.NoError(t, plcconfig.Validate(loaded))
	require.Equal(t, *tree.DBs[0].DBNumber, *loaded.DBs[0].DBNumber)
	require.Len(t, loaded.DBs[0].Fields, 3)
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.csv")

	tree := sampleTree()
	codec := plcconfig.CSVCodec{}
	require.NoError(t, codec.Save(path, tree))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "db_number,name,type,offset,bit,value")

	loaded, err := codec.Load(path)
	require.NoError(t, err)
	require.NoError(t, plcconfig.Validate(loaded))
	require.Len(t, loaded.DBs, 1)
	require.Len(t, loaded.DBs[0].Fields, 3)
}

func TestCodecForDispatchesByExtension(t *testing.T) {
	_, err := plcconfig.CodecFor("foo.yaml")
	require.NoError(t, err)
	_, err = plcconfig.CodecFor("foo.csv")
	require.NoError(t, err)
	_, err = plcconfig.CodecFor("foo.txt")
	require.Error(t, err)
}
