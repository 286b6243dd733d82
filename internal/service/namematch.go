package service

import (
	"strings"

	"mybank-ledger/internal/domain"
)

// Account-name prefixes that carry product naming, not the owner's name.
var accountNamePrefixes = []string{
	"Vadesiz - ",
	"Vadeli - ",
	"Checking - ",
	"Savings - ",
}

// recipientNameMatches is a soft anti-fraud check, not a hard identity
// check: the supplied name must be a case- and diacritic-insensitive
// substring match against the owner's display name or the account name
// with product prefixes stripped.
func recipientNameMatches(supplied string, account *domain.Account) bool {
	want := foldName(supplied)
	if want == "" {
		return true
	}

	candidates := []string{
		account.DisplayName(),
		account.AccountName,
		stripAccountNamePrefix(account.AccountName),
	}
	for _, c := range candidates {
		have := foldName(c)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

func stripAccountNamePrefix(name string) string {
	for _, p := range accountNamePrefixes {
		if strings.HasPrefix(name, p) {
			return name[len(p):]
		}
	}
	return name
}

// foldName lowercases, folds Turkish diacritics to ASCII and collapses
// whitespace, so "Ayşe Yılmaz" and "AYSE  yilmaz" compare equal.
func foldName(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '̇' { // combining dot left over from lowercasing 'İ'
			continue
		}
		switch r {
		case 'ç':
			r = 'c'
		case 'ğ':
			r = 'g'
		case 'ı', 'î', 'i':
			r = 'i'
		case 'ö':
			r = 'o'
		case 'ş':
			r = 's'
		case 'ü', 'û':
			r = 'u'
		case 'â':
			r = 'a'
		}
		if r == ' ' || r == '\t' {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
