package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// shareTokenBytes gives 256 bits of entropy, 43 URL-safe characters.
const shareTokenBytes = 32

// NewShareToken returns an unguessable, URL-safe token for public program
// links.
func NewShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
