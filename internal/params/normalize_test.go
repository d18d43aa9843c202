package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertmcp/internal/jsonx"
)

func TestNormalizeScalars(t *testing.T) {
	got, err := Normalize([]byte(`{"a": true, "b": 3, "c": null}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "true", "b": "3", "c": ""}, got)
}

func TestNormalizeMixedArray(t *testing.T) {
	got, err := Normalize([]byte(`{"a": ["x", 1, true]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "x,1,true"}, got)
}

func TestNormalizeKeepsNumberTextAsReceived(t *testing.T) {
	got, err := Normalize([]byte(`{"q": 1.50, "big": 12345678901234567890123, "exp": 1e3, "neg": -0.0}`))
	require.NoError(t, err)
	assert.Equal(t, "1.50", got["q"])
	assert.Equal(t, "12345678901234567890123", got["big"])
	assert.Equal(t, "1e3", got["exp"])
	assert.Equal(t, "-0.0", got["neg"])
}

func TestNormalizeStringsAreUnescaped(t *testing.T) {
	got, err := Normalize([]byte(`{"s": "line\nbreak é", "empty": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "line\nbreak é", got["s"])
	assert.Equal(t, "", got["empty"])
}

func TestNormalizeNestedValuesUseRawText(t *testing.T) {
	got, err := Normalize([]byte(`{"obj": {"x": 1, "y": [1, 2]}, "arr": [[1,2], {"k":"v"}, null, "s"]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1, "y": [1, 2]}`, got["obj"])
	assert.Equal(t, `[1,2],{"k":"v"},null,s`, got["arr"])
}

func TestNormalizeEmptyObject(t *testing.T) {
	got, err := Normalize([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalizeEmptyArray(t *testing.T) {
	got, err := Normalize([]byte(`{"pages": []}`))
	require.NoError(t, err)
	assert.Equal(t, "", got["pages"])
}

func TestNormalizeRejectsNonObjectTopLevel(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `3`, `true`, `null`} {
		_, err := Normalize([]byte(raw))
		assert.ErrorIs(t, err, ErrNotObject, raw)
	}
}

func TestNormalizeRejectsInvalidJSON(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":}`, `nope`} {
		_, err := Normalize([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidJSON, raw)
	}
}

func TestNormalizeKeepsBlankKeys(t *testing.T) {
	got, err := Normalize([]byte(`{"": "x", " ": 1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"": "x", " ": "1"}, got)
}

func TestNormalizeDuplicateKeyLastWins(t *testing.T) {
	got, err := Normalize([]byte(`{"a": 1, "a": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "2", got["a"])
}

func TestCoercionIndependentOfSurroundingKeys(t *testing.T) {
	alone, err := Normalize([]byte(`{"v": 2.50}`))
	require.NoError(t, err)
	crowded, err := Normalize([]byte(`{"z": "q", "v": 2.50, "a": [true], "m": {"n": null}}`))
	require.NoError(t, err)
	assert.Equal(t, alone["v"], crowded["v"])
}

func TestNormalizeFields(t *testing.T) {
	got, err := NormalizeFields(map[string]jsonx.RawMessage{
		"PageRange":       jsonx.RawMessage(`"1-3"`),
		"ImageResolution": jsonx.RawMessage(`300`),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PageRange": "1-3", "ImageResolution": "300"}, got)

	_, err = NormalizeFields(map[string]jsonx.RawMessage{"bad": jsonx.RawMessage(`{`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestParseKinds(t *testing.T) {
	cases := map[string]Kind{
		`"s"`:     KindString,
		` 12 `:    KindNumber,
		`-1`:      KindNumber,
		`true`:    KindBool,
		`false`:   KindBool,
		`null`:    KindNull,
		`[1]`:     KindArray,
		`{"a":1}`: KindObject,
	}
	for raw, want := range cases {
		v, err := Parse([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, v.Kind(), raw)
	}
	assert.Equal(t, "12", mustParse(t, ` 12 `).Raw())
	assert.Equal(t, "false", mustParse(t, `false`).String())
}

func mustParse(t *testing.T, raw string) Value {
	t.Helper()
	v, err := Parse([]byte(raw))
	require.NoError(t, err)
	return v
}
