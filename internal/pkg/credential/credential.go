package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-identity-worker/internal/domain"
)

// MinLength is the shortest temporary password the directory policy accepts.
const MinLength = 12

// Look-alike characters (I, O, l, 0, 1) are excluded.
const (
	upper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lower   = "abcdefghijkmnopqrstuvwxyz"
	digits  = "23456789"
	symbols = "!@#$%^&*()-_=+[]{}:,.?"
	all     = upper + lower + digits + symbols
)

// Generate returns a temporary password of exactly length characters containing at least
// one uppercase letter, lowercase letter, digit and symbol. All randomness comes from
// crypto/rand.
func Generate(length int) (string, error) {
	if length < MinLength {
		return "", fmt.Errorf("credential length %d below %d: %w", length, MinLength, domain.ErrInvalidLength)
	}

	buf := make([]byte, 0, length)
	for _, class := range []string{upper, lower, digits, symbols} {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates so the required classes do not sit in the first four positions.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
