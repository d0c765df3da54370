package model

import "strings"

// FilterWidgets returns the widgets whose name contains query, ignoring case,
// in their original order. An empty query matches everything. The input slice
// is never modified.
func FilterWidgets(widgets []WidgetDescriptor, query string) []WidgetDescriptor {
	out := make([]WidgetDescriptor, 0, len(widgets))
	if query == "" {
		return append(out, widgets...)
	}
	q := strings.ToLower(query)
	for _, w := range widgets {
		if strings.Contains(strings.ToLower(w.Name), q) {
			out = append(out, w)
		}
	}
	return out
}
