package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) [32]byte {
	var key [32]byte
	for i := range key {
		key[i] = b
	}
	return key
}

func TestSealOpenRoundtrip(t *testing.T) {
	box := NewBox(testKey(1))

	sealed, err := box.Seal("ghp_supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "ghp_supersecret", sealed)

	value, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ghp_supersecret", value)
}

func TestSealIsNonDeterministic(t *testing.T) {
	box := NewBox(testKey(1))

	a, err := box.Seal("same value")
	require.NoError(t, err)
	b, err := box.Seal("same value")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh nonce per seal")
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	sealed, err := NewBox(testKey(1)).Seal("value")
	require.NoError(t, err)

	_, err = NewBox(testKey(2)).Open(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenRejectsGarbage(t *testing.T) {
	box := NewBox(testKey(1))

	_, err := box.Open("not base64!!!")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = box.Open("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestEmptyValuePassesThrough(t *testing.T) {
	box := NewBox(testKey(1))

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	value, err := box.Open("")
	require.NoError(t, err)
	assert.Empty(t, value)
}
