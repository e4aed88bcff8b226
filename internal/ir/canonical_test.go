package ir

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"b": 1,
		"a": "x",
		"c": []any{true, false},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,false]}`, string(out))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(out))
}

func TestMarshalCanonicalKeepsLineSeparators(t *testing.T) {
	out, err := MarshalCanonical("x\u2028y\\u2029")
	require.NoError(t, err)
	assert.Equal(t, "\"x\u2028y\\\\u2029\"", string(out))
}

func TestMarshalCanonicalEscapesControl(t *testing.T) {
	out, err := MarshalCanonical("a\n\"\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\n\"\u0001"`, string(out))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"
	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonicalBigInt(t *testing.T) {
	n, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	out, err := MarshalCanonical([]any{n})
	require.NoError(t, err)
	assert.Equal(t, `[123456789012345678901234567890]`, string(out))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"k": struct{}{}})
	assert.Error(t, err)
}

func TestCompareUTF16Order(t *testing.T) {
	// U+1F600 is a surrogate pair starting at 0xD83D, so it sorts before
	// U+FF61 in UTF-16 order although its UTF-8 bytes sort after.
	keys := sortedKeysUTF16(map[string]any{"\U0001F600": 1, "\uFF61": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "\uFF61"}, keys)
}
