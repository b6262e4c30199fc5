package normalize

import (
	"net/mail"
	"strings"

	"github.com/customeros/webmail/internal/models"
)

// Failed marks a header that was missing from the upstream message.
const Failed = "Failed"

// ParseSender turns a From header into a name and address. It never fails:
// a missing header yields the Failed sentinel and unparseable input falls back
// to splitting on the first "<".
//
// With legacy set, the email keeps a leading "<" the way early clients expected.
func ParseSender(from string, legacy bool) models.Sender {
	from = strings.TrimSpace(from)
	if from == "" {
		return models.Sender{Name: Failed, Email: Failed}
	}
	if legacy {
		return legacySender(from)
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		name := addr.Name
		if name == "" {
			name = addr.Address
		}
		return models.Sender{Name: name, Email: addr.Address}
	}

	name, rest, found := strings.Cut(from, "<")
	if !found {
		if strings.Contains(from, "@") {
			return models.Sender{Name: from, Email: from}
		}
		return models.Sender{Name: cleanName(from)}
	}
	email := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ">"))
	name = cleanName(name)
	if name == "" {
		name = email
	}
	return models.Sender{Name: name, Email: email}
}

func legacySender(from string) models.Sender {
	name, rest, _ := strings.Cut(from, "<")
	return models.Sender{
		Name:  cleanName(name),
		Email: "<" + strings.TrimSuffix(strings.TrimSpace(rest), ">"),
	}
}

func cleanName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
}
