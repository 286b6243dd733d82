package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mybank-ledger/internal/domain"
)

func TestRecipientNameMatches(t *testing.T) {
	account := &domain.Account{
		AccountName: "Vadesiz - Ayşe Yılmaz",
		OwnerName:   "Ayşe Yılmaz",
	}

	cases := []struct {
		name     string
		supplied string
		want     bool
	}{
		{"exact owner name", "Ayşe Yılmaz", true},
		{"ascii folded", "Ayse Yilmaz", true},
		{"upper case", "AYŞE YILMAZ", true},
		{"upper case ascii", "AYSE YILMAZ", true},
		{"extra whitespace", "  Ayse   Yilmaz ", true},
		{"partial first name", "Ayşe", true},
		{"partial last name", "yilmaz", true},
		{"full account name with prefix", "Vadesiz - Ayşe Yılmaz", true},
		{"empty name skips the check", "", true},
		{"whitespace only skips the check", "   ", true},
		{"different person", "Mehmet Demir", false},
		{"close but wrong", "Ayse Yalman", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, recipientNameMatches(tc.supplied, account))
		})
	}
}

func TestRecipientNameMatchesFallsBackToAccountName(t *testing.T) {
	account := &domain.Account{AccountName: "Savings - Mehmet Demir"}

	assert.True(t, recipientNameMatches("Mehmet Demir", account))
	assert.True(t, recipientNameMatches("mehmet", account))
	assert.False(t, recipientNameMatches("Ayşe Yılmaz", account))
}

func TestFoldName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ayşe Yılmaz", "ayse yilmaz"},
		{"İsmail", "ismail"},
		{"ÇAĞLA ÖZGÜR ŞEN ÜN", "cagla ozgur sen un"},
		{"  double   spaced  ", "double spaced"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, foldName(tc.in))
	}
}
