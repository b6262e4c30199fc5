package gmail

import (
	"strings"

	"github.com/customeros/webmail/internal/enum"
)

// normalizeSearch maps a folder and free-text query to Gmail's label/query
// pair. Trash has no system label usable for listing, so it becomes a query.
func normalizeSearch(folder, q string) (label string, query string) {
	q = strings.TrimSpace(q)
	switch folder {
	case "":
		return "", q
	case enum.FolderTrash:
		return "", strings.TrimSpace("in:trash " + q)
	default:
		return strings.ToUpper(folder), q
	}
}

func listLabels(folder string, extra []string) []string {
	labels := make([]string, 0, len(extra)+1)
	for _, l := range extra {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	if label, _ := normalizeSearch(folder, ""); label != "" {
		labels = append(labels, label)
	}
	return labels
}
