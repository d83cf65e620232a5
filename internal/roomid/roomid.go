// Package roomid generates the short codes players type to join a room.
package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Length is the number of characters in a room code
const Length = 6

// Crockford's base32 alphabet: no i, l, o or u, so codes read back
// unambiguously over voice chat
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource allows deterministic codes in tests
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes from a configurable randomness source
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil randSource means crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code using the generator's RandSource
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = alphabet[g.randSource.IntN(len(alphabet))]
		}
		return string(buf)
	}

	if _, err := rand.Read(buf); err != nil {
		panic("roomid: failed to read random bytes: " + err.Error())
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

// Validate checks that a room code is well formed
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(id))
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
