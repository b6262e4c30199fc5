package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/webmail/internal/models"
)

func TestListKey_DistinctPerParams(t *testing.T) {
	base := models.ListParams{Folder: "inbox", Query: "invoice", MaxResults: 10, LabelIDs: []string{"UNREAD"}}
	variants := []models.ListParams{
		base,
		{Folder: "spam", Query: "invoice", MaxResults: 10, LabelIDs: []string{"UNREAD"}},
		{Folder: "inbox", Query: "receipt", MaxResults: 10, LabelIDs: []string{"UNREAD"}},
		{Folder: "inbox", Query: "invoice", MaxResults: 20, LabelIDs: []string{"UNREAD"}},
		{Folder: "inbox", Query: "invoice", MaxResults: 10, LabelIDs: []string{"STARRED"}},
		{Folder: "inbox", Query: "invoice", MaxResults: 10, LabelIDs: []string{"UNREAD"}, PageToken: "p2"},
	}

	seen := map[string]bool{}
	for _, params := range variants {
		key := ListKey("u1", params)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestListKey_Format(t *testing.T) {
	key := ListKey("u1", models.ListParams{Folder: "inbox", Query: "q", MaxResults: 5, LabelIDs: []string{"A", "B"}})
	assert.Equal(t, "u1/list/inbox|q|5|A,B", key)
	assert.Equal(t, "u1/message/m1", MessageKey("u1", "m1"))
}

func TestParseKey(t *testing.T) {
	userID, kind := parseKey(MessageKey("u1", "INBOX:7"))
	assert.Equal(t, "u1", userID)
	assert.Equal(t, kindMessage, kind)

	userID, kind = parseKey("garbage")
	assert.Empty(t, userID)
	assert.Empty(t, kind)
}

func TestListKey_ComponentsCannotCollide(t *testing.T) {
	a := ListKey("u1", models.ListParams{Folder: "inbox", Query: "x|5|L", MaxResults: 10})
	b := ListKey("u1", models.ListParams{Folder: "inbox", Query: "x", MaxResults: 5, LabelIDs: []string{"L|10|"}})
	assert.NotEqual(t, a, b)

	c := ListKey("u1", models.ListParams{Folder: "inbox", MaxResults: 10, LabelIDs: []string{"A,B"}})
	d := ListKey("u1", models.ListParams{Folder: "inbox", MaxResults: 10, LabelIDs: []string{"A", "B"}})
	assert.NotEqual(t, c, d)
}

func TestKeys_NoPathTraversal(t *testing.T) {
	keys := []string{
		ListKey("u1", models.ListParams{Folder: "../../u2/list/inbox", MaxResults: 10}),
		ListKey("u1", models.ListParams{Folder: "..", Query: "/..", PageToken: "../x"}),
		MessageKey("u1", ".."),
		MessageKey("u1", "../../u2/message/m1"),
	}
	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, "u1/"), key)
		for _, segment := range strings.Split(key, "/") {
			assert.NotEqual(t, "..", segment, key)
			assert.NotEqual(t, ".", segment, key)
		}
		assert.Len(t, strings.Split(key, "/"), 3, key)
	}
}

func TestParseKey_UnescapesUser(t *testing.T) {
	userID, kind := parseKey(ListKey("team/alice", models.ListParams{Folder: "inbox"}))
	assert.Equal(t, "team/alice", userID)
	assert.Equal(t, kindList, kind)
}
