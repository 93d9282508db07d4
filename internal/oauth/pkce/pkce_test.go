package pkce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengeFrom(t *testing.T) {
	t.Run("S256 matches RFC 7636 appendix B vector", func(t *testing.T) {
		verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
		want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
		assert.Equal(t, want, ChallengeFrom(verifier, MethodS256))
	})

	t.Run("plain returns verifier unchanged", func(t *testing.T) {
		assert.Equal(t, "some-verifier", ChallengeFrom("some-verifier", MethodPlain))
	})

	t.Run("no padding in S256 output", func(t *testing.T) {
		assert.NotContains(t, ChallengeFrom("abc", MethodS256), "=")
	})
}

func TestVerify(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := ChallengeFrom(verifier, MethodS256)

	t.Run("exact verifier passes", func(t *testing.T) {
		assert.True(t, Verify(verifier, challenge, MethodS256))
	})

	t.Run("different verifier fails", func(t *testing.T) {
		assert.False(t, Verify(verifier+"x", challenge, MethodS256))
	})

	t.Run("plain requires byte-exact equality", func(t *testing.T) {
		assert.True(t, Verify("v", "v", MethodPlain))
		assert.False(t, Verify("v", "V", MethodPlain))
	})
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod(MethodS256))
	assert.True(t, ValidMethod(MethodPlain))
	assert.False(t, ValidMethod("S512"))
	assert.False(t, ValidMethod(""))
}
