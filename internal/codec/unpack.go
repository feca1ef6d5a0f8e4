package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
)

// Unpack decodes data (which must be exactly t.Size() bytes or longer) into
// the canonical Go value for t. DT/DTL decode to their canonical display
// strings; REAL is rounded to two fractional decimals, per spec.md §4.1.
func Unpack(t plc.TypeTag, data []byte) (interface{}, error) {
	need := t.Size()
	if len(data) < need {
		return nil, shortBuffer(t.String(), need, len(data))
	}
	data = data[:need]

	switch t.Kind {
	case plc.KindBool:
		return data[0]&0x01 != 0, nil
	case plc.KindByte:
		return int(data[0]), nil
	case plc.KindWord:
		return int(binary.BigEndian.Uint16(data)), nil
	case plc.KindDWord:
		return int64(binary.BigEndian.Uint32(data)), nil
	case plc.KindInt:
		return int(int16(binary.BigEndian.Uint16(data))), nil
	case plc.KindDInt:
		return int(int32(binary.BigEndian.Uint32(data))), nil
	case plc.KindReal:
		f := math.Float32frombits(binary.BigEndian.Uint32(data))
		return roundTo2(float64(f)), nil
	case plc.KindDT:
		return unpackDT(data), nil
	case plc.KindDTL:
		return unpackDTL(data), nil
	case plc.KindString:
		return unpackString(data), nil
	case plc.KindWString:
		return unpackWString(data), nil
	default:
		return nil, shortBuffer(t.String(), need, len(data))
	}
}

func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}

func unpackString(data []byte) string {
	actual := int(data[1])
	if 2+actual > len(data) {
		actual = len(data) - 2
	}
	return string(data[2 : 2+actual])
}

func unpackWString(data []byte) string {
	actual := int(binary.BigEndian.Uint16(data[2:4]))
	maxUnits := (len(data) - 4) / 2
	if actual > maxUnits {
		actual = maxUnits
	}
	units := make([]uint16, actual)
	for i := 0; i < actual; i++ {
		units[i] = binary.BigEndian.Uint16(data[4+2*i : 6+2*i])
	}
	return string(utf16.Decode(units))
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// unpackDT reverses packDT. Sub-second precision recovered from the
// hundredths byte is intentionally discarded in the returned string — see
// spec.md §9's Open Question on DT sub-second precision.
func unpackDT(data []byte) string {
	year := fromBCD(data[0])
	month := fromBCD(data[1])
	day := fromBCD(data[2])
	hour := fromBCD(data[3])
	minute := fromBCD(data[4])
	second := fromBCD(data[5])
	yearFull := 1900 + year
	if year < 90 {
		yearFull = 2000 + year
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", yearFull, month, day, hour, minute, second)
}

func unpackDTL(data []byte) string {
	year := binary.BigEndian.Uint16(data[0:2])
	month := data[2]
	day := data[3]
	weekday := data[4]
	hour := data[5]
	minute := data[6]
	second := data[7]
	nanos := binary.BigEndian.Uint32(data[8:12])
	micro := nanos / 1000
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d %d", year, month, day, hour, minute, second, micro, weekday)
}
