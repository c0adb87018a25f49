package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet is uppercase letters and digits without the look-alikes O, I and 0.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"

const (
	MinLength     = 5
	MaxLength     = 6
	DefaultLength = 6

	// Codes shorter than this are treated as room codes, anything longer is a room id.
	maxCodeLength = 20
)

// Generate returns a random code of the given length drawn from Alphabet.
func Generate(length int) string {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is gone.
			panic(err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String()
}

// Normalize upper-cases and trims user supplied codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCode reports whether s should be resolved through the allocator rather than used as a room id.
func IsCode(s string) bool {
	return len(s) > 0 && len(s) < maxCodeLength
}

// ValidLength reports whether n is an allowed code length.
func ValidLength(n int) bool {
	return n >= MinLength && n <= MaxLength
}
