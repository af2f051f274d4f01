package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	path, err := store.Save([]byte("invoice body"), "invoice.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"))
	assert.True(t, store.Exists(path))

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("invoice body"), data)

	removed, err := store.Delete(path)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Exists(path))

	removed, err = store.Delete(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLocalStoreSaveUniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	first, err := store.Save([]byte("a"), "same.pdf")
	require.NoError(t, err)
	second, err := store.Save([]byte("b"), "same.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashBytesKnownVector(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashBytes([]byte("abc")))
}

func TestHashReaderRewinds(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))

	sum, err := HashReader(r)
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("abc")), sum)

	rest := make([]byte, 3)
	n, err := r.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(rest))
}
