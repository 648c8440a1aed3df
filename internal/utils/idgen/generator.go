package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns an identifier of the form "<prefix>_<suffix>"
// where suffix is `length` characters drawn from [a-z0-9] using crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("idgen: invalid length %d", length)
	}

	suffix := make([]byte, length)
	max := big.NewInt(int64(len(idCharset)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("idgen: read random: %w", err)
		}
		suffix[i] = idCharset[n.Int64()]
	}

	return prefix + "_" + string(suffix), nil
}

// ValidateIDFormat reports whether id matches "<expectedPrefix>_<suffix>"
// with a non-empty suffix of [a-z0-9] characters only.
func ValidateIDFormat(id, expectedPrefix string) bool {
	if !strings.HasPrefix(id, expectedPrefix+"_") {
		return false
	}

	suffix := id[len(expectedPrefix)+1:]
	if suffix == "" {
		return false
	}

	for _, char := range suffix {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return false
		}
	}
	return true
}
