package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSearch(t *testing.T) {
	tests := []struct {
		name      string
		folder    string
		q         string
		wantLabel string
		wantQuery string
	}{
		{"trash becomes a query", "trash", "invoice", "", "in:trash invoice"},
		{"trash without query", "trash", "", "", "in:trash"},
		{"inbox becomes a label", "inbox", "from:bob", "INBOX", "from:bob"},
		{"custom folder uppercased", "Label_12", "", "LABEL_12", ""},
		{"no folder", "", "hello", "", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, query := normalizeSearch(tt.folder, tt.q)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantQuery, query)
		})
	}
}

func TestListLabels_MergesExtraLabelsBeforeFolder(t *testing.T) {
	assert.Equal(t, []string{"UNREAD", "INBOX"}, listLabels("inbox", []string{"UNREAD", " "}))
	assert.Equal(t, []string{"STARRED"}, listLabels("trash", []string{"STARRED"}))
	assert.Empty(t, listLabels("trash", nil))
}
