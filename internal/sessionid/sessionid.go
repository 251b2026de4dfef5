// Package sessionid generates opaque session tokens: a UUIDv7 encoded as
// 26 characters of Crockford base32, as used by TypeID.
package sessionid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/coder/quartz"
)

const (
	// Length is the number of characters in a session ID
	Length = 26

	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
)

// Generator creates session IDs from a clock and a source of random bytes
type Generator struct {
	clock  quartz.Clock
	random io.Reader
}

// NewGenerator creates a generator. A nil clock uses the real clock and a
// nil random uses crypto/rand.
func NewGenerator(clock quartz.Clock, random io.Reader) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if random == nil {
		random = rand.Reader
	}
	return &Generator{clock: clock, random: random}
}

// Generate creates a new session ID
func (g *Generator) Generate() (string, error) {
	var uuid [16]byte

	// 48-bit big-endian millisecond timestamp
	ms := g.clock.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		uuid[i] = byte(ms >> (40 - 8*i))
	}

	if _, err := io.ReadFull(g.random, uuid[6:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // RFC 4122 variant

	return encode(uuid), nil
}

// encode writes the 128 bits as 26 base32 characters, left-padded with two
// zero bits so the first character is always 0-7.
func encode(data [16]byte) string {
	bit := func(k int) byte {
		if k < 0 {
			return 0
		}
		return (data[k/8] >> (7 - k%8)) & 1
	}

	out := make([]byte, Length)
	for i := range out {
		start := i*5 - 2
		var v byte
		for j := 0; j < 5; j++ {
			v = v<<1 | bit(start+j)
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

// Validate checks that id could have been produced by Generate
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("session ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("session ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
