package adminauth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// KeyLength is the fixed length of a minted access key.
const KeyLength = 12

const (
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"
	keyChars   = upperChars + lowerChars + digitChars
)

// GenerateAccessKey mints a random key of KeyLength letters and digits with
// at least one uppercase letter, one lowercase letter and one digit. The
// result is shuffled so the guaranteed characters carry no positional bias.
func GenerateAccessKey() (string, error) {
	buf := make([]byte, 0, KeyLength)

	for _, set := range []string{upperChars, lowerChars, digitChars} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < KeyLength {
		c, err := pick(keyChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates with crypto randomness.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func pick(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
