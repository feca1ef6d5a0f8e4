package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntDeM/S7-DB-Simulator/internal/codec"
	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
)

func mustTag(t *testing.T, s string) plc.TypeTag {
	t.Helper()
	tag, err := plc.ParseTypeTag(s)
	require.NoError(t, err)
	return tag
}

func TestIntRoundTrip(t *testing.T) {
	tag := mustTag(t, "INT")
	raw, err := codec.Pack(tag, -12345)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCF, 0xC7}, raw)

	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Equal(t, -12345, v)
}

func TestRealEncoding(t *testing.T) {
	tag := mustTag(t, "REAL")
	raw, err := codec.Pack(tag, 3.14)
	require.NoError(t, err)
	require.Equal(t, []byte{0x40, 0x48, 0xF5, 0xC3}, raw)

	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Equal(t, 3.14, v)
}

func TestRealZeroSigns(t *testing.T) {
	tag := mustTag(t, "REAL")
	for _, f := range []float64{0.0, -0.0, 1.5, -42.25} {
		raw, err := codec.Pack(tag, f)
		require.NoError(t, err)
		v, err := codec.Unpack(tag, raw)
		require.NoError(t, err)
		require.InDelta(t, f, v.(float64), 0.001)
	}
}

func TestStringOverLength(t *testing.T) {
	tag := mustTag(t, "STRING[8]")
	raw, err := codec.Pack(tag, "HELLO WORLD")
	require.NoError(t, err)
	require.Equal(t, byte(8), raw[0])
	require.Equal(t, byte(8), raw[1])
	require.Equal(t, "HELLO WO", string(raw[2:10]))

	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Equal(t, "HELLO WO", v)
}

func TestWStringNonASCIIRoundTrip(t *testing.T) {
	tag := mustTag(t, "WSTRING[8]")
	raw, err := codec.Pack(tag, "héllo")
	require.NoError(t, err)
	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Equal(t, "héllo", v)
}

func TestDTRoundTrip(t *testing.T) {
	tag := mustTag(t, "DT")
	raw, err := codec.Pack(tag, "2024-06-15 12:34:56")
	require.NoError(t, err)
	require.Len(t, raw, 8)
	require.Equal(t, []byte{0x24, 0x06, 0x15, 0x12, 0x34, 0x56}, raw[:6])

	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Equal(t, "2024-06-15 12:34:56", v)
}

func TestDTTwoDigitYearBoundary(t *testing.T) {
	tag := mustTag(t, "DT")
	for _, tc := range []struct {
		in, wantPrefix string
	}{
		{"1989-01-01 00:00:00", "2089-"},
		{"1990-01-01 00:00:00", "1990-"},
		{"1999-01-01 00:00:00", "1999-"},
		{"2000-01-01 00:00:00", "2000-"},
	} {
		raw, err := codec.Pack(tag, tc.in)
		require.NoError(t, err)
		v, err := codec.Unpack(tag, raw)
		require.NoError(t, err)
		require.Contains(t, v.(string), tc.wantPrefix)
	}
}

func TestDTLRoundTrip(t *testing.T) {
	tag := mustTag(t, "DTL")
	raw, err := codec.Pack(tag, "2024-06-15 12:34:56.123456")
	require.NoError(t, err)
	require.Len(t, raw, 12)

	v, err := codec.Unpack(tag, raw)
	require.NoError(t, err)
	require.Contains(t, v.(string), "2024-06-15 12:34:56.123456")
}

func TestBoolLiterals(t *testing.T) {
	tag := mustTag(t, "BOOL")
	for _, tc := range []struct {
		in   interface{}
		want byte
	}{
		{true, 0x01}, {false, 0x00},
		{"true", 0x01}, {"false", 0x00},
		{"yes", 0x01}, {"no", 0x00},
		{"1", 0x01}, {"0", 0x00},
		{1, 0x01}, {0, 0x00},
	} {
		raw, err := codec.Pack(tag, tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, raw[0])
	}
}

func TestShortBuffer(t *testing.T) {
	tag := mustTag(t, "DINT")
	_, err := codec.Unpack(tag, []byte{0x01, 0x02})
	require.Error(t, err)
	var shortErr *codec.ShortBufferError
	require.ErrorAs(t, err, &shortErr)
}

func TestInvalidValue(t *testing.T) {
	tag := mustTag(t, "INT")
	_, err := codec.Pack(tag, "not-a-number")
	require.Error(t, err)
	var invalidErr *codec.InvalidValueError
	require.ErrorAs(t, err, &invalidErr)
}

func TestSizeContract(t *testing.T) {
	cases := map[string]int{
		"BOOL": 1, "BYTE": 1, "WORD": 2, "INT": 2, "DWORD": 4, "DINT": 4,
		"REAL": 4, "DT": 8, "DTL": 12, "STRING[8]": 10, "WSTRING[8]": 20,
	}
	for lit, want := range cases {
		tag := mustTag(t, lit)
		require.Equal(t, want, tag.Size(), lit)
	}
}

func TestLoopZeroAndNestedSemanticsBelongToScriptPackage(t *testing.T) {
	// placeholder to keep package-level test file non-empty if cases above
	// are trimmed; real LOOP semantics are exercised in internal/script.
}
