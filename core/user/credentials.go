package user

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	usernameFallback     = "student"
	usernameSuffixDigits = 4
	generatedPasswordLen = 16

	pwdLowerChars   = "abcdefghijkmnopqrstuvwxyz"
	pwdUpperChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdDigitChars   = "23456789"
	pwdSpecialChars = "!@#$%^&*-_=+?"
)

var pwdAllChars = pwdLowerChars + pwdUpperChars + pwdDigitChars + pwdSpecialChars

// GenerateUsername derives a login name from the applicant's names: "first.last.NNNN".
// Accents are folded, anything outside [a-z0-9] is dropped and NNNN is a random 4 digit suffix.
func GenerateUsername(firstName, lastName string) (string, error) {
	suffix, err := randomInt(pow10(usernameSuffixDigits))
	if err != nil {
		return "", errors.Wrap(err, "generating username suffix")
	}
	return fmt.Sprintf("%s.%s.%0*d",
		usernamePart(firstName), usernamePart(lastName), usernameSuffixDigits, suffix), nil
}

func usernamePart(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return usernameFallback
	}
	return b.String()
}

// GeneratePassword returns a random password holding at least one lowercase letter,
// one uppercase letter, one digit and one special character.
func GeneratePassword() (string, error) {
	pwd := make([]byte, 0, generatedPasswordLen)
	for _, set := range []string{pwdLowerChars, pwdUpperChars, pwdDigitChars, pwdSpecialChars} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}
	for len(pwd) < generatedPasswordLen {
		c, err := randomChar(pwdAllChars)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}

	// Fisher-Yates, so the required classes are not always up front
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := randomInt(int64(i + 1))
		if err != nil {
			return "", errors.Wrap(err, "shuffling password")
		}
		pwd[i], pwd[j] = pwd[j], pwd[i]
	}
	return string(pwd), nil
}

// HashPassword returns the bcrypt hash of pwd.
func HashPassword(pwd string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	return hash, nil
}

func randomChar(set string) (byte, error) {
	idx, err := randomInt(int64(len(set)))
	if err != nil {
		return 0, errors.Wrap(err, "generating password")
	}
	return set[idx], nil
}

func randomInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
