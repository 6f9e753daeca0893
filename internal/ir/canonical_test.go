package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(IRObject{
		"year": IRInt(1969),
		"id":   IRString("spotify:track:1"),
		"name": IRString("Come Together"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"spotify:track:1","name":"Come Together","year":1969}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(IRString("Simon & Garfunkel <live>"))
	require.NoError(t, err)
	assert.Equal(t, `"Simon & Garfunkel <live>"`, string(out))
}

func TestMarshalCanonical_EscapesControlCharacters(t *testing.T) {
	out, err := MarshalCanonical("a\"b\\c\nd\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\"b\\c\nd\u0001"`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "Beyonce\u0301"
	composed := "Beyonc\u00e9"

	a, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)
	b, err := MarshalCanonical(IRString(composed))
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_PlainGoTypes(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"seq":   int64(2),
		"type":  "play",
		"ids":   []any{"a", "b"},
		"valid": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ids":["a","b"],"seq":2,"type":"play","valid":true}`, string(out))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestDigest_StableAcrossMapOrder(t *testing.T) {
	a, err := Digest(DomainTrack, IRObject{"id": IRString("t1"), "year": IRInt(2001)})
	require.NoError(t, err)
	b, err := Digest(DomainTrack, IRObject{"year": IRInt(2001), "id": IRString("t1")})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := Digest(DomainEvent, IRObject{"id": IRString("t1"), "year": IRInt(2001)})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "domains must separate digests")
}

func TestEventID_DependsOnSeq(t *testing.T) {
	payload := IRObject{"type": IRString("play")}
	a, err := EventID("run-1", 1, payload)
	require.NoError(t, err)
	b, err := EventID("run-1", 2, payload)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
