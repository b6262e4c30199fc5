package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/customeros/webmail/internal/models"
)

const (
	kindMessage = "message"
	kindList    = "list"
)

// keyEscaper leaves no '/', '|' or ',' in a component and never yields a
// "." or ".." path segment.
var keyEscaper = strings.NewReplacer(".", "%2E")

func escapeKeyPart(part string) string {
	return keyEscaper.Replace(url.QueryEscape(part))
}

func UserPrefix(userID string) string {
	return escapeKeyPart(userID) + "/"
}

func ListPrefix(userID string) string {
	return UserPrefix(userID) + kindList + "/"
}

func MessageKey(userID, id string) string {
	return UserPrefix(userID) + kindMessage + "/" + escapeKeyPart(id)
}

// ListKey is {user}/list/{folder}|{q}|{max}|{labelIds}. A page token, when
// present, is appended so later pages do not overwrite the first. Every
// component is escaped, so caller input cannot leave the user's prefix.
func ListKey(userID string, params models.ListParams) string {
	labels := make([]string, len(params.LabelIDs))
	for i, label := range params.LabelIDs {
		labels[i] = escapeKeyPart(label)
	}

	var b strings.Builder
	b.WriteString(ListPrefix(userID))
	b.WriteString(escapeKeyPart(params.Folder))
	b.WriteByte('|')
	b.WriteString(escapeKeyPart(params.Query))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(params.MaxResults, 10))
	b.WriteByte('|')
	b.WriteString(strings.Join(labels, ","))
	if params.PageToken != "" {
		b.WriteByte('|')
		b.WriteString(escapeKeyPart(params.PageToken))
	}
	return b.String()
}

// parseKey splits a key into its user id and kind. Unknown shapes return empty strings.
func parseKey(key string) (userID, kind string) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return "", ""
	}
	userID, err := url.QueryUnescape(parts[0])
	if err != nil {
		return "", ""
	}
	return userID, parts[1]
}
