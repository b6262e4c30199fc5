package utils

import (
	"strings"
)

// UniqueEmails drops blank and repeated addresses, comparing case-insensitively.
// The first spelling wins.
func UniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		key := strings.ToLower(email)
		if email == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, email)
	}
	return unique
}

// ExtractDomainFromEmail accepts a bare address or "Name <address>".
func ExtractDomainFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if start := strings.LastIndex(email, "<"); start >= 0 {
		if end := strings.LastIndex(email, ">"); end > start {
			email = email[start+1 : end]
		}
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}
