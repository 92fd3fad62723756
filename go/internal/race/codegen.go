package race

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// CodeAlphabet is the set of characters room codes are drawn from
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the number of characters in a room code
	CodeLength = 4

	defaultCodeAttempts = 64
)

// CodeGenerator produces short human-enterable room codes
type CodeGenerator struct {
	length      int
	alphabet    string
	maxAttempts int
	rand        io.Reader
}

// NewCodeGenerator returns a generator for 4-character alphanumeric codes
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		length:      CodeLength,
		alphabet:    CodeAlphabet,
		maxAttempts: defaultCodeAttempts,
		rand:        rand.Reader,
	}
}

// Generate draws codes until one is not taken. taken is called with the
// candidate and must report whether a live room already uses it.
func (g *CodeGenerator) Generate(taken func(code string) bool) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, g.maxAttempts)
}

func (g *CodeGenerator) draw() (string, error) {
	limit := big.NewInt(int64(len(g.alphabet)))
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.rand, limit)
		if err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		b.WriteByte(g.alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims and upper-cases a code typed by a player
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
