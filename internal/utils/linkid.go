package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// LinkIDLength is the fixed length of public inbox tokens.
const LinkIDLength = 7

const linkIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateLinkID returns a random link id of LinkIDLength characters drawn
// uniformly from [a-z0-9]. Uniqueness is a storage-level concern: callers
// must check the result against the users table and redraw on collision.
func GenerateLinkID() (string, error) {
	buf := make([]byte, LinkIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(linkIDAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = linkIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GenerateState returns an opaque random string of length n used as the
// OAuth state parameter.
func GenerateState(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}
