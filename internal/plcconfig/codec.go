package plcconfig

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Codec is the "configuration codec" external contract from spec.md §4.6:
// load a tree from a path, save a tree to a path. YAML and CSV are the two
// concrete serializations spec.md §6 names.
type Codec interface {
	Load(path string) (*Tree, error)
	Save(path string, tree *Tree) error
}

// YAMLCodec implements Codec over the hierarchical dbs:/fields: document
// shape in spec.md §6.
type YAMLCodec struct{}

func (YAMLCodec) Load(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "opening config")
	}
	defer f.Close()

	var tree Tree
	if err := yaml.NewDecoder(f).Decode(&tree); err != nil {
		return nil, errors.Annotate(err, "decoding yaml config")
	}
	return &tree, nil
}

func (YAMLCodec) Save(path string, tree *Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "creating config")
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(tree); err != nil {
		return errors.Annotate(err, "encoding yaml config")
	}
	return nil
}

// CSVCodec implements Codec over the flat tabular export row in spec.md
// §6: "db_number, name, type, offset, bit, value" with one header row.
// Row order determines field order within a db, and db order of first
// appearance; fields for the same db_number must be contiguous is not
// required — rows are grouped by db_number on load regardless of order.
type CSVCodec struct{}

var csvHeader = []string{"db_number", "name", "type", "offset", "bit", "value"}

func (CSVCodec) Load(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "opening config")
	}
	defer f.Close()
	return decodeCSV(f)
}

func decodeCSV(r io.Reader) (*Tree, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Annotate(err, "reading csv header")
	}
	for i, col := range csvHeader {
		if i >= len(header) || header[i] != col {
			return nil, errors.Errorf("csv header mismatch: expected %v, got %v", csvHeader, header)
		}
	}

	order := []uint32{}
	byNumber := map[uint32]*DBEntry{}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "reading csv row")
		}

		dbNumber64, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "parsing db_number %q", row[0])
		}
		dbNumber := uint32(dbNumber64)

		entry, ok := byNumber[dbNumber]
		if !ok {
			entry = &DBEntry{DBNumber: &dbNumber}
			byNumber[dbNumber] = entry
			order = append(order, dbNumber)
		}

		offset, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, errors.Annotatef(err, "parsing offset %q", row[3])
		}

		field := FieldEntry{Name: row[1], Type: row[2], Offset: &offset}
		if row[4] != "" {
			bit, err := strconv.Atoi(row[4])
			if err != nil {
				return nil, errors.Annotatef(err, "parsing bit %q", row[4])
			}
			field.Bit = &bit
		}
		if row[5] != "" {
			value := row[5]
			field.Value = &value
		}
		entry.Fields = append(entry.Fields, field)
	}

	tree := &Tree{}
	for _, n := range order {
		tree.DBs = append(tree.DBs, *byNumber[n])
	}
	return tree, nil
}

func (CSVCodec) Save(path string, tree *Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err, "creating config")
	}
	defer f.Close()
	return encodeCSV(f, tree)
}

func encodeCSV(w io.Writer, tree *Tree) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return errors.Annotate(err, "writing csv header")
	}
	for _, db := range tree.DBs {
		dbNum := fmt.Sprintf("%d", *db.DBNumber)
		for _, f := range db.Fields {
			bit := ""
			if f.Bit != nil {
				bit = strconv.Itoa(*f.Bit)
			}
			value := ""
			if f.Value != nil {
				value = *f.Value
			}
			row := []string{dbNum, f.Name, f.Type, strconv.Itoa(*f.Offset), bit, value}
			if err := writer.Write(row); err != nil {
				return errors.Annotate(err, "writing csv row")
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// CodecFor dispatches by file extension, mirroring the teacher repo's
// original file_handlers.py get_file_handler pattern.
func CodecFor(path string) (Codec, error) {
	switch ext(path) {
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	case ".csv":
		return CSVCodec{}, nil
	default:
		return nil, errors.Errorf("unsupported config file extension for %q", path)
	}
}

func ext(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
