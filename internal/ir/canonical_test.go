package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"node id", NodeID(7), "7"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"float slice", []float64{1, 3, 8, 12}, "[1,3,8,12]"},
		{"string slice", []string{"L1", "L2"}, `["L1","L2"]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"zero", 0, "0"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"integral", 1000, "1000"},
		{"fraction", 0.5, "0.5"},
		{"clock", 2e9, "2000000000"},
		{"throughput", 529e9, "529000000000"},
		{"negative", -2.25, "-2.25"},
		{"tiny", 1.5e-7, "1.5e-7"},
		{"huge", 1e21, "1e+21"},
		{"shortest round trip", 0.1, "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite")
	}

	_, err := MarshalCanonical(map[string]any{"cost": math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"cost"`)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  3,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := map[string]any{
		"z": map[string]any{
			"b": 1,
			"a": 2.5,
		},
		"a": []any{"x", 3},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",3],"z":{"a":2.5,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8
	obj := map[string]any{
		"\uE000": 1, // UTF-16: 0xE000
		"\U00010000": 2, // UTF-16: 0xD800, 0xDC00 (surrogate pair)
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	expected := "{\"\U00010000\":2,\"\uE000\":1}"
	assert.Equal(t, expected, string(result))
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, 0, compareKeysRFC8785("a", "a"))
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
	assert.Equal(t, 1, compareKeysRFC8785("b", "ab"))
	assert.Equal(t, -1, compareKeysRFC8785("\U00010000", "\uE000"))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	result1, err := MarshalCanonical(map[string]any{composed: composed})
	require.NoError(t, err)

	result2, err := MarshalCanonical(map[string]any{decomposed: decomposed})
	require.NoError(t, err)

	assert.Equal(t, result1, result2, "NFC normalization should make these equal")
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal backslash-u2028 text", `is \u2028`, `"is \\u2028"`},
		{"mixed literal and actual", "literal \\u2028 and actual \u2028", "\"literal \\\\u2028 and actual \u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalIsValidJSON(t *testing.T) {
	obj := map[string]any{
		"latencies":   []float64{1, 7, 19, 36},
		"clock":       2e9,
		"name":        "reference",
		"selectivity": 0.25,
		"nested":      map[string]any{"global": true},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.True(t, json.Valid(result))
	assert.NotContains(t, string(result), " ")
}

// FuzzMarshalCanonicalIdempotent checks canonical(decode(canonical(x))) ==
// canonical(x) for arbitrary JSON.
func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"a":1,"b":"test"}`)
	f.Add(`[1,2.5,3]`)
	f.Add(`"hello"`)
	f.Add(`1e-7`)
	f.Add(`{"nested":{"deep":{"value":123}}}`)

	f.Fuzz(func(t *testing.T, jsonStr string) {
		var val any
		if err := json.Unmarshal([]byte(jsonStr), &val); err != nil {
			t.Skip()
		}

		canonical1, err := MarshalCanonical(val)
		if err != nil {
			t.Skip() // null
		}

		var val2 any
		require.NoError(t, json.Unmarshal(canonical1, &val2))

		canonical2, err := MarshalCanonical(val2)
		require.NoError(t, err)
		assert.Equal(t, canonical1, canonical2, "canonical marshaling must be idempotent")
	})
}
