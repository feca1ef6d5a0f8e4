// Package plc holds the domain model shared by every other package: the
// closed S7 type-tag grammar and the Field/DB definitions parsed from
// configuration.
package plc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Kind is the closed set of atomic S7 type families. STRING and WSTRING
// carry an extra length parameter (see TypeTag.N) instead of being modeled
// as distinct per-length types.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindByte
	KindWord
	KindInt
	KindDWord
	KindDInt
	KindReal
	KindDT
	KindDTL
	KindString
	KindWString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "BOOL"
	case KindByte:
		return "BYTE"
	case KindWord:
		return "WORD"
	case KindInt:
		return "INT"
	case KindDWord:
		return "DWORD"
	case KindDInt:
		return "DINT"
	case KindReal:
		return "REAL"
	case KindDT:
		return "DT"
	case KindDTL:
		return "DTL"
	case KindString:
		return "STRING"
	case KindWString:
		return "WSTRING"
	default:
		return "INVALID"
	}
}

// TypeTag is a closed tagged value: Kind selects the family, N carries the
// length parameter for STRING[n]/WSTRING[n] and is zero for every other
// kind. This is the "tagged variant ... carry n inline" shape spec.md §9
// asks for in place of per-type handler objects.
type TypeTag struct {
	Kind Kind
	N    int
}

const (
	minStringLen  = 1
	maxStringLen  = 254
	minWStringLen = 1
	maxWStringLen = 16382
)

// Size returns the fixed byte size of the type per the size contract in
// spec.md §3.
func (t TypeTag) Size() int {
	switch t.Kind {
	case KindBool, KindByte:
		return 1
	case KindWord, KindInt:
		return 2
	case KindDWord, KindDInt, KindReal:
		return 4
	case KindDT:
		return 8
	case KindDTL:
		return 12
	case KindString:
		return t.N + 2
	case KindWString:
		return 2*t.N + 4
	default:
		return 0
	}
}

func (t TypeTag) String() string {
	switch t.Kind {
	case KindString:
		return fmt.Sprintf("STRING[%d]", t.N)
	case KindWString:
		return fmt.Sprintf("WSTRING[%d]", t.N)
	default:
		return t.Kind.String()
	}
}

// ParseTypeTag canonicalizes a type-tag literal (case-insensitive on input)
// into a TypeTag, validating the STRING[n]/WSTRING[n] length bounds from
// spec.md §3.
func ParseTypeTag(s string) (TypeTag, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "BOOL":
		return TypeTag{Kind: KindBool}, nil
	case "BYTE":
		return TypeTag{Kind: KindByte}, nil
	case "WORD":
		return TypeTag{Kind: KindWord}, nil
	case "INT":
		return TypeTag{Kind: KindInt}, nil
	case "DWORD":
		return TypeTag{Kind: KindDWord}, nil
	case "DINT":
		return TypeTag{Kind: KindDInt}, nil
	case "REAL":
		return TypeTag{Kind: KindReal}, nil
	case "DT":
		return TypeTag{Kind: KindDT}, nil
	case "DTL":
		return TypeTag{Kind: KindDTL}, nil
	}

	if n, ok, err := parseParametricLen(upper, "STRING["); ok {
		if err != nil {
			return TypeTag{}, err
		}
		if n < minStringLen || n > maxStringLen {
			return TypeTag{}, errors.Errorf("STRING length %d out of range [%d,%d]", n, minStringLen, maxStringLen)
		}
		return TypeTag{Kind: KindString, N: n}, nil
	}
	if n, ok, err := parseParametricLen(upper, "WSTRING["); ok {
		if err != nil {
			return TypeTag{}, err
		}
		if n < minWStringLen || n > maxWStringLen {
			return TypeTag{}, errors.Errorf("WSTRING length %d out of range [%d,%d]", n, minWStringLen, maxWStringLen)
		}
		return TypeTag{Kind: KindWString, N: n}, nil
	}

	return TypeTag{}, errors.Errorf("unsupported type tag %q", s)
}

func parseParametricLen(upper, prefix string) (n int, ok bool, err error) {
	if !strings.HasPrefix(upper, prefix) || !strings.HasSuffix(upper, "]") {
		return 0, false, nil
	}
	inner := upper[len(prefix) : len(upper)-1]
	n, convErr := strconv.Atoi(inner)
	if convErr != nil {
		return 0, true, errors.Errorf("invalid length in type tag %q: %v", upper, convErr)
	}
	return n, true, nil
}
