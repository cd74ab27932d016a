package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same input")
	require.NoError(t, err)
	second, err := Hash("same input")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, h := range []string{first, second} {
		ok, err := Verify("same input", h)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$not-base64!$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		_, err := Verify("anything", encoded)
		assert.ErrorIsf(t, err, ErrMalformedHash, "encoded=%q", encoded)
	}
}

func TestVerifyUnsupportedVersion(t *testing.T) {
	_, err := Verify("anything", "$argon2id$v=16$m=65536,t=3,p=2$c2FsdA$aGFzaA")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedHash)
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	VerifyDummy("whatever")
}
