package hash

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := Bcrypt{Cost: bcrypt.MinCost}
	digest, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", digest)
	assert.True(t, h.Verify("secret1", digest))
	assert.False(t, h.Verify("secret2", digest))
	assert.False(t, h.Verify("secret1", "not-a-digest"))
}

func TestBcrypt_SaltsEachHash(t *testing.T) {
	t.Parallel()

	h := Bcrypt{Cost: bcrypt.MinCost}
	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcrypt_RejectsOverlongPassword(t *testing.T) {
	t.Parallel()

	_, err := Bcrypt{Cost: bcrypt.MinCost}.Hash(strings.Repeat("x", 73))
	assert.True(t, errors.Is(err, ErrPasswordTooLong))
}
