package budget

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCount(t *testing.T) {
	b, err := New("gpt-4", 100)
	if err != nil {
		t.Fatal(err)
	}
	if n := b.Count(""); n != 0 {
		t.Errorf("Count(\"\") = %d", n)
	}
	if n := b.Count("How much did I spend on groceries?"); n <= 0 {
		t.Errorf("Count() = %d, want > 0", n)
	}
}

func TestTrimWithinBudget(t *testing.T) {
	b, _ := New("gpt-4", 100)
	q := "What are my largest expenses this month?"
	if got := b.Trim(q); got != q {
		t.Errorf("Trim() = %q, want unchanged", got)
	}
}

func TestTrimOverBudget(t *testing.T) {
	b, _ := New("gpt-4", 10)
	q := strings.Repeat("rent utilities groceries ", 20)

	got := b.Trim(q)

	if n := b.Count(got); n > 10 {
		t.Errorf("trimmed query has %d tokens, want <= 10", n)
	}
	if !strings.HasPrefix(q, got) {
		t.Errorf("trimmed query %q is not a prefix", got)
	}
}

func TestTrimKeepsWholeRunes(t *testing.T) {
	q := strings.Repeat("我的储蓄目标是什么", 10)
	for max := 1; max <= 12; max++ {
		b, _ := New("gpt-4", max)
		got := b.Trim(q)
		if !utf8.ValidString(got) {
			t.Fatalf("Trim with max %d returned invalid UTF-8 %q", max, got)
		}
		if !strings.HasPrefix(q, got) {
			t.Errorf("Trim with max %d returned %q, not a prefix", max, got)
		}
	}
}

func TestWholeRunes(t *testing.T) {
	full := "储蓄"
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"save", "save"},
		{full, full},
		{full[:4], "储"},
		{full[:5], "储"},
		{full[:1], ""},
		{"ok " + full[:2], "ok "},
	}
	for _, tt := range tests {
		if got := wholeRunes(tt.in); got != tt.want {
			t.Errorf("wholeRunes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimDisabled(t *testing.T) {
	b, _ := New("gpt-4", 0)
	q := strings.Repeat("word ", 500)
	if got := b.Trim(q); got != q {
		t.Error("Trim() changed the query with trimming disabled")
	}
}

func TestUnknownModelFallsBack(t *testing.T) {
	b, err := New("not-a-real-model", 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Count("hello world") == 0 {
		t.Error("fallback tokenizer returned no tokens")
	}
}
