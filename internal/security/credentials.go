package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	PasswordLength   = 12
	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%"
)

// GeneratePassword returns a random PasswordLength password drawn from
// letters, digits and a small symbol set.
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))

	var b strings.Builder
	b.Grow(PasswordLength)
	for i := 0; i < PasswordLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GenerateUsername builds role_code_NNNN in lower case, where NNNN is the
// last four digits of now in Unix milliseconds.
func GenerateUsername(role string, cityCode string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if len(stamp) > 4 {
		stamp = stamp[len(stamp)-4:]
	}
	return strings.ToLower(role + "_" + cityCode + "_" + stamp)
}
