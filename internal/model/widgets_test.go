package model

import (
	"reflect"
	"testing"
)

func widgetNames(ws []WidgetDescriptor) []string {
	names := make([]string, 0, len(ws))
	for _, w := range ws {
		names = append(names, w.Name)
	}
	return names
}

func TestFilterWidgets(t *testing.T) {
	t.Parallel()

	all := []WidgetDescriptor{
		{Name: "LineChart"},
		{Name: "BarChart"},
		{Name: "Table"},
		{Name: "linechart-lite"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"LineChart", "BarChart", "Table", "linechart-lite"}},
		{"chart", []string{"LineChart", "BarChart", "linechart-lite"}},
		{"LINE", []string{"LineChart", "linechart-lite"}},
		{"tab", []string{"Table"}},
		{"pie", []string{}},
	}

	for _, tt := range tests {
		got := widgetNames(FilterWidgets(all, tt.query))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FilterWidgets(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFilterWidgets_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	all := []WidgetDescriptor{{Name: "A"}, {Name: "B"}}
	got := FilterWidgets(all, "")
	got[0].Name = "changed"

	if all[0].Name != "A" {
		t.Fatalf("input mutated: %v", all)
	}
	if len(FilterWidgets(all, "b")) != 1 || len(all) != 2 {
		t.Fatalf("filter changed master list length: %d", len(all))
	}
}

func TestFilterWidgets_NilInput(t *testing.T) {
	t.Parallel()

	if got := FilterWidgets(nil, "x"); len(got) != 0 {
		t.Fatalf("FilterWidgets(nil) = %v, want empty", got)
	}
}
