// Package iban validates and mints IBANs with the ISO 7064 MOD-97-10
// check digits.
package iban

import (
	"math/rand"
	"strconv"
	"strings"

	"mybank-ledger/internal/apperr"
)

const (
	minLength        = 15
	maxLength        = 34
	bankCodeLength   = 5
	accountLength    = 17
	generateAttempts = 20
)

// Normalize strips whitespace and upper-cases the candidate.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == ' ' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Validate reports whether raw is a structurally valid IBAN with a correct
// MOD-97 checksum. The input is normalized first.
func Validate(raw string) bool {
	s := Normalize(raw)
	if len(s) < minLength || len(s) > maxLength {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}

	// Rearrange tail(4)+head(4), expand letters A=10..Z=35, reduce mod 97.
	rearranged := s[4:] + s[:4]
	return mod97(toNumericString(rearranged)) == 1
}

// Generate builds an IBAN from a two-letter country prefix, a 5-digit bank
// code and a 17-digit account body, computing the check digits.
func Generate(countryPrefix, bankCode, accountBody string) (string, error) {
	countryPrefix = strings.ToUpper(strings.TrimSpace(countryPrefix))
	if len(countryPrefix) != 2 || countryPrefix[0] < 'A' || countryPrefix[0] > 'Z' ||
		countryPrefix[1] < 'A' || countryPrefix[1] > 'Z' {
		return "", apperr.New(apperr.InvalidInput, "country prefix must be two letters")
	}
	if !isDigits(bankCode) || len(bankCode) != bankCodeLength {
		return "", apperr.New(apperr.InvalidInput, "bank code must be exactly 5 digits")
	}
	if !isDigits(accountBody) || len(accountBody) != accountLength {
		return "", apperr.New(apperr.InvalidInput, "account body must be exactly 17 digits")
	}

	bban := bankCode + accountBody // 22 characters
	remainder := mod97(toNumericString(bban + countryPrefix + "00"))
	check := 98 - remainder

	var kk string
	if check < 10 {
		kk = "0" + strconv.Itoa(check)
	} else {
		kk = strconv.Itoa(check)
	}
	return countryPrefix + kk + bban, nil
}

// GenerateUnique mints IBANs with random account bodies until existsFn
// reports a free one. True uniqueness is the caller's index; the bounded
// retry only minimizes collision probability.
func GenerateUnique(countryPrefix, bankCode string, existsFn func(iban string) (bool, error)) (string, error) {
	if !isDigits(bankCode) || len(bankCode) != bankCodeLength {
		return "", apperr.New(apperr.InvalidInput, "bank code must be exactly 5 digits")
	}

	for i := 0; i < generateAttempts; i++ {
		candidate, err := Generate(countryPrefix, bankCode, randomDigits(accountLength))
		if err != nil {
			return "", err
		}
		exists, err := existsFn(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperr.ErrGenerationExhausted
}

// GenerateAccountNumber returns a bank-internal numeric account number.
// Lengths outside 6..20 fall back to 12.
func GenerateAccountNumber(length int) string {
	if length < 6 || length > 20 {
		length = 12
	}
	return randomDigits(length)
}

// randomDigits produces a numeric string whose first digit is 1-9.
func randomDigits(length int) string {
	b := make([]byte, length)
	b[0] = byte('1' + rand.Intn(9))
	for i := 1; i < length; i++ {
		b[i] = byte('0' + rand.Intn(10))
	}
	return string(b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// toNumericString maps letters to their IBAN values (A=10..Z=35) and keeps
// digits as-is.
func toNumericString(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteString(strconv.Itoa(int(c-'A') + 10))
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// mod97 reduces an arbitrary-length numeric string in 9-digit chunks,
// carrying the running remainder, so long BBANs cannot overflow.
func mod97(numeric string) int {
	const chunkSize = 9
	remainder := 0
	for i := 0; i < len(numeric); i += chunkSize {
		end := i + chunkSize
		if end > len(numeric) {
			end = len(numeric)
		}
		part := strconv.Itoa(remainder) + numeric[i:end]
		n, _ := strconv.ParseInt(part, 10, 64)
		remainder = int(n % 97)
	}
	return remainder
}
