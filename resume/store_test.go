package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreSaveLoadForget(t *testing.T) {
	s := NewMemStore()
	_, _, ok := s.Load([]byte("tok"))
	assert.False(t, ok)

	s.Save([]byte("tok"), 10, 20)
	serverPos, clientPos, ok := s.Load([]byte("tok"))
	require.True(t, ok)
	assert.Equal(t, uint64(10), serverPos)
	assert.Equal(t, uint64(20), clientPos)

	s.Forget([]byte("tok"))
	_, _, ok = s.Load([]byte("tok"))
	assert.False(t, ok)
}

func TestMemStoreSaveOverwritesPreviousPositions(t *testing.T) {
	s := NewMemStore()
	s.Save([]byte("tok"), 1, 2)
	s.Save([]byte("tok"), 3, 4)

	serverPos, clientPos, ok := s.Load([]byte("tok"))
	require.True(t, ok)
	assert.Equal(t, uint64(3), serverPos)
	assert.Equal(t, uint64(4), clientPos)
}

func TestMemStoreTokensAreIndependent(t *testing.T) {
	s := NewMemStore()
	s.Save([]byte("a"), 1, 1)
	s.Save([]byte("b"), 2, 2)

	serverPos, _, ok := s.Load([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, uint64(1), serverPos)

	serverPos, _, ok = s.Load([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, uint64(2), serverPos)
}
