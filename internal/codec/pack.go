// Package codec implements the S7 Type Codec: pure pack/unpack functions
// over the fixed-layout binary formats in spec.md §4.1. Dispatch is a
// switch over plc.TypeTag.Kind rather than per-type handler objects, per
// spec.md §9.
package codec

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
)

// Pack encodes value into exactly t.Size() bytes for atomic types, or
// t.Size() bytes for STRING/WSTRING (which are themselves fixed-size once
// n is known). It returns an *InvalidValueError if value does not satisfy
// the type's constraints.
func Pack(t plc.TypeTag, value interface{}) ([]byte, error) {
	switch t.Kind {
	case plc.KindBool:
		return packBool(value)
	case plc.KindByte:
		return packUint(t, value, 1, false)
	case plc.KindWord:
		return packUint(t, value, 2, false)
	case plc.KindDWord:
		return packUint(t, value, 4, false)
	case plc.KindInt:
		return packUint(t, value, 2, true)
	case plc.KindDInt:
		return packUint(t, value, 4, true)
	case plc.KindReal:
		return packReal(t, value)
	case plc.KindDT:
		return packDT(t, value)
	case plc.KindDTL:
		return packDTL(t, value)
	case plc.KindString:
		return packString(t, value)
	case plc.KindWString:
		return packWString(t, value)
	default:
		return nil, invalidValue(t.String(), value, nil)
	}
}

func packBool(value interface{}) ([]byte, error) {
	b, err := asBool(value)
	if err != nil {
		return nil, invalidValue("BOOL", value, err)
	}
	if b {
		return []byte{0x01}, nil
	}
	return []byte{0x00}, nil
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return false, strconvErrf("unrecognized BOOL literal %q", v)
	default:
		return false, strconvErrf("unsupported BOOL input type %T", value)
	}
}

// packUint packs value as a width-byte big-endian integer. signed controls
// whether value is interpreted/range-checked as a two's-complement signed
// integer (INT/DINT) or an unsigned one (BYTE/WORD/DWORD). BYTE is not
// range-checked: it keeps only the low 8 bits of value.
func packUint(t plc.TypeTag, value interface{}, width int, signed bool) ([]byte, error) {
	i, err := asInt64(value)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	if width > 1 {
		bits := uint(8 * width)
		lo, hi := int64(0), int64(1)<<bits-1
		if signed {
			lo, hi = -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		}
		if i < lo || i > hi {
			return nil, invalidValue(t.String(), value, strconvErrf("value %d out of range [%d,%d]", i, lo, hi))
		}
	}
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(i)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(i))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(i))
	}
	return buf, nil
}

func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, strconvErrf("unsupported integer input type %T", value)
	}
}

func packReal(t plc.TypeTag, value interface{}) ([]byte, error) {
	f, err := asFloat64(value)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(float32(f)))
	return buf, nil
}

func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		return f, nil
	default:
		return 0, strconvErrf("unsupported REAL input type %T", value)
	}
}

// packString writes the STRING[n] header (max length, actual length) and
// the ASCII payload, silently truncating values longer than n per spec.md
// §4.1 ("STRING payloads exceeding n are silently truncated on pack").
func packString(t plc.TypeTag, value interface{}) ([]byte, error) {
	s, err := asString(value)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	k := len(s)
	if k > t.N {
		k = t.N
	}
	buf := make([]byte, t.Size())
	buf[0] = byte(t.N)
	buf[1] = byte(k)
	copy(buf[2:2+k], s[:k])
	return buf, nil
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmtStringer:
		return v.String(), nil
	default:
		return "", strconvErrf("unsupported STRING input type %T", value)
	}
}

type fmtStringer interface{ String() string }

// packWString writes the WSTRING[n] header (max code units, actual code
// units, both big-endian) and the UTF-16BE payload, truncating at a code
// unit boundary when the encoded string exceeds n code units.
func packWString(t plc.TypeTag, value interface{}) ([]byte, error) {
	s, err := asString(value)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	units := utf16.Encode([]rune(s))
	k := len(units)
	if k > t.N {
		k = t.N
	}
	buf := make([]byte, t.Size())
	binary.BigEndian.PutUint16(buf[0:2], uint16(t.N))
	binary.BigEndian.PutUint16(buf[2:4], uint16(k))
	for i := 0; i < k; i++ {
		binary.BigEndian.PutUint16(buf[4+2*i:6+2*i], units[i])
	}
	return buf, nil
}

const dtLayout = "2006-01-02 15:04:05"

// packDT encodes a DT value (time.Time or "YYYY-MM-DD HH:MM:SS"[T]-separated
// string) into the 8-byte BCD layout of spec.md §4.1.
func packDT(t plc.TypeTag, value interface{}) ([]byte, error) {
	tm, err := asTime(value, dtLayout)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	buf := make([]byte, 8)
	buf[0] = toBCD(tm.Year() % 100)
	buf[1] = toBCD(int(tm.Month()))
	buf[2] = toBCD(tm.Day())
	buf[3] = toBCD(tm.Hour())
	buf[4] = toBCD(tm.Minute())
	buf[5] = toBCD(tm.Second())
	hundredths := tm.Nanosecond() / 1e7 // microseconds/10000, spec.md §4.1
	buf[6] = toBCD(hundredths)
	weekday := s7Weekday(tm)
	buf[7] = toBCD(weekday) << 4
	return buf, nil
}

// packDTL encodes a DTL value into the 12-byte binary layout of spec.md
// §4.1. Accepts the same string forms as DT plus optional ".ffffff"
// fractional seconds and an optional trailing weekday integer.
func packDTL(t plc.TypeTag, value interface{}) ([]byte, error) {
	tm, weekday, err := asTimeWithWeekday(value)
	if err != nil {
		return nil, invalidValue(t.String(), value, err)
	}
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:2], uint16(tm.Year()))
	buf[2] = byte(tm.Month())
	buf[3] = byte(tm.Day())
	buf[4] = byte(weekday)
	buf[5] = byte(tm.Hour())
	buf[6] = byte(tm.Minute())
	buf[7] = byte(tm.Second())
	nanos := uint32(tm.Nanosecond()/1000) * 1000
	binary.BigEndian.PutUint32(buf[8:12], nanos)
	return buf, nil
}

func toBCD(v int) byte {
	return byte(((v / 10) << 4) | (v % 10))
}

// s7Weekday maps a time.Time to the S7 1=Sunday..7=Saturday convention.
// time.Weekday is already 0=Sunday..6=Saturday, so adding one lines up
// exactly.
func s7Weekday(tm time.Time) int {
	return int(tm.Weekday()) + 1
}

func asTime(value interface{}, layout string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(strings.Replace(v, "T", " ", 1))
		return time.Parse(layout, s)
	default:
		return time.Time{}, strconvErrf("unsupported date/time input type %T", value)
	}
}

// asTimeWithWeekday parses the DTL string form, which may carry fractional
// seconds and an explicit trailing weekday.
func asTimeWithWeekday(value interface{}) (time.Time, int, error) {
	switch v := value.(type) {
	case time.Time:
		return v, s7Weekday(v), nil
	case string:
		fields := strings.Fields(strings.TrimSpace(strings.Replace(v, "T", " ", 1)))
		if len(fields) < 2 || len(fields) > 3 {
			return time.Time{}, 0, strconvErrf("invalid DTL string %q", v)
		}
		datePart, timePart := fields[0], fields[1]
		timePart = strings.Replace(timePart, "T", "", 1)
		main, frac := timePart, "0"
		if idx := strings.IndexByte(timePart, '.'); idx >= 0 {
			main = timePart[:idx]
			frac = timePart[idx+1:]
		}
		for len(frac) < 6 {
			frac += "0"
		}
		frac = frac[:6]
		micro, err := strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, 0, err
		}
		tm, err := time.Parse(dtLayout, datePart+" "+main)
		if err != nil {
			return time.Time{}, 0, err
		}
		tm = tm.Add(time.Duration(micro) * time.Microsecond)
		weekday := s7Weekday(tm)
		if len(fields) == 3 {
			w, err := strconv.Atoi(fields[2])
			if err != nil {
				return time.Time{}, 0, err
			}
			weekday = w
		}
		return tm, weekday, nil
	default:
		return time.Time{}, 0, strconvErrf("unsupported DTL input type %T", value)
	}
}
