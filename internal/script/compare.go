package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// compareValues evaluates "current <op> literal" where current is a value
// as returned by Store.Read (bool, int, int64, float64, or string) and
// literal is the script's raw comparison-target token. The literal is
// coerced to current's family before comparing, matching spec.md §4.5's
// "literals are parsed per the field's type".
func compareValues(current interface{}, op, literal string) (bool, error) {
	switch v := current.(type) {
	case bool:
		lit, err := parseBoolLiteral(literal)
		if err != nil {
			return false, err
		}
		return compareBool(v, op, lit)
	case int:
		lit, err := strconv.Atoi(strings.TrimSpace(literal))
		if err != nil {
			return false, err
		}
		return compareInt64(int64(v), op, int64(lit))
	case int64:
		lit, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 64)
		if err != nil {
			return false, err
		}
		return compareInt64(v, op, lit)
	case float64:
		lit, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
		if err != nil {
			return false, err
		}
		return compareFloat64(round2(v), op, round2(lit))
	case string:
		return compareString(v, op, literal)
	default:
		return false, fmt.Errorf("unsupported value type %T in comparison", current)
	}
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func parseBoolLiteral(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized BOOL literal %q", s)
}

func compareBool(a bool, op string, b bool) (bool, error) {
	ai, bi := 0, 0
	if a {
		ai = 1
	}
	if b {
		bi = 1
	}
	return compareInt64(int64(ai), op, int64(bi))
}

func compareInt64(a int64, op string, b int64) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func compareFloat64(a float64, op string, b float64) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func compareString(a, op, bRaw string) (bool, error) {
	b := stripQuotes(bRaw)
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %q", op)
	}
}
