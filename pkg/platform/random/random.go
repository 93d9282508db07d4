// Package random generates unguessable identifiers for codes and tokens.
package random

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// TokenLength is the identifier length for authorization codes and refresh
// tokens: 64 base62 characters, ~381 bits of entropy.
const TokenLength = 64

// Token returns a fresh 64-character credential identifier.
func Token() string {
	return String(TokenLength)
}

// String returns n cryptographically random base62 characters. It panics if
// the system entropy source fails, which is not a recoverable condition for
// an authorization server.
func String(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("random: entropy source failed: " + err.Error())
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out)
}
