package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueEmails(t *testing.T) {
	got := UniqueEmails([]string{"a@example.com", " A@example.com", "", "b@example.com", "a@example.com"})
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
	assert.Empty(t, UniqueEmails(nil))
}

func TestExtractDomainFromEmail(t *testing.T) {
	cases := map[string]string{
		"jane@Example.COM":            "example.com",
		"Jane Doe <jane@example.org>": "example.org",
		"  bob@mail.example.net  ":    "mail.example.net",
		"not-an-address":              "",
		"@example.com":                "",
		"a@b@example.com":             "",
		"":                            "",
		"Broken <jane@example.com":    "example.com",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractDomainFromEmail(in), in)
	}
}

func TestStringToSlice(t *testing.T) {
	assert.Equal(t, []string{"UNREAD", "STARRED"}, StringToSlice("UNREAD, STARRED,,"))
	assert.Empty(t, StringToSlice(""))
}
