package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(Argon2Params{Time: 2, MemoryKB: 8 * 1024, Threads: 1})
	hash, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.True(t, IsArgon2Hash(hash))
	assert.Contains(t, hash, "$m=8192,t=2,p=1$")

	ok, err := h.Verify("s3cret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("autre", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasherReadsCostFromStoredHash(t *testing.T) {
	old := NewPasswordHasher(Argon2Params{Time: 1, MemoryKB: 8 * 1024, Threads: 1})
	hash, err := old.Hash("motdepasse")
	require.NoError(t, err)

	// un changement de configuration ne doit pas bloquer les comptes existants
	current := NewPasswordHasher(Argon2Params{Time: 3, MemoryKB: 16 * 1024, Threads: 2})
	ok, err := current.Verify("motdepasse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasherRejectsMalformedHash(t *testing.T) {
	h := NewPasswordHasher(Argon2Params{})
	assert.Equal(t, DefaultArgon2Params, h.params)

	for _, encoded := range []string{
		"",
		"motdepasse-en-clair",
		"$argon2id$v=19$m=8192,t=1,p=1$c2Vs",
		"$argon2id$v=18$m=8192,t=1,p=1$c2Vs$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2Vs$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2Vs$",
	} {
		ok, err := h.Verify("x", encoded)
		assert.False(t, ok, encoded)
		assert.ErrorIs(t, err, errMalformedHash, encoded)
	}
}
