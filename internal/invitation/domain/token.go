package domain

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
)

// alphabet matches the wire format [A-Z0-9]; uppercase keeps codes easy to
// read aloud and type on a phone.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewValue generates a random identifier of the given length from a
// cryptographic source. A 12-character value spans 36^12 possibilities,
// far beyond guessable within any expiry window.
func NewValue(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// InviteURL embeds the token on the public landing path.
func InviteURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/invite?token=" + url.QueryEscape(token)
}

// Normalize canonicalizes user input: codes and tokens are matched
// case-insensitively and stored uppercase.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
