// Package tokens maps archive folders to opaque access tokens.
//
// The map file written here is read back by LoadMap and by the reverse proxy
// in front of the archive, so both sides share the line format in mapfile.go.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	TokenLength = 16
	randomBytes = 12
)

// Generator derives a token for a folder name. The zero value is random.
type Generator struct {
	seed   string
	seeded bool
}

// NewSeededGenerator returns a Generator whose tokens are reproducible for
// the same seed and folder name.
func NewSeededGenerator(seed string) Generator {
	return Generator{seed: seed, seeded: true}
}

// NewRandomGenerator returns a Generator that draws every token from crypto/rand.
func NewRandomGenerator() Generator {
	return Generator{}
}

func (g Generator) Seeded() bool {
	return g.seeded
}

func (g Generator) Token(folderName string) (string, error) {
	if g.seeded {
		return GenerateToken(folderName, g.seed), nil
	}
	return RandomToken()
}

// GenerateToken hashes "seed:folderName" and keeps the first TokenLength
// characters of its URL-safe base64 encoding.
func GenerateToken(folderName, seed string) string {
	sum := sha256.Sum256([]byte(seed + ":" + folderName))
	return base64.URLEncoding.EncodeToString(sum[:])[:TokenLength]
}

func RandomToken() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
