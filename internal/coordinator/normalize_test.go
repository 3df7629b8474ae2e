package coordinator

import (
	"strings"
	"testing"
)

func TestNormalizeInsight(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "  Spending is up 4%.  ", "Spending is up 4%."},
		{"insight field", map[string]any{"insight": "From insight.", "text": "ignored"}, "From insight."},
		{"text field", map[string]any{"text": "From text."}, "From text."},
		{"other object", map[string]any{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"array", []any{"x", "y"}, `["x","y"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeInsight(tt.in); got != tt.want {
				t.Errorf("NormalizeInsight() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeInsightConvertsHTML(t *testing.T) {
	got := NormalizeInsight("<p>Your <strong>top</strong> category is dining.</p>")
	if strings.Contains(got, "<p>") || strings.Contains(got, "<strong>") {
		t.Errorf("HTML not converted: %q", got)
	}
	if !strings.Contains(got, "**top**") {
		t.Errorf("expected markdown emphasis, got %q", got)
	}
}
