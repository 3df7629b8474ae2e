package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/user/finsight/internal/types"
)

func init() {
	color.NoColor = true
}

func TestEntry(t *testing.T) {
	user := Entry(types.ConversationEntry{Role: types.RoleUser, Content: "How much on rent?"})
	if !strings.Contains(user, "> How much on rent?") {
		t.Errorf("user entry = %q", user)
	}

	assistant := Entry(types.ConversationEntry{
		Role:          types.RoleAssistant,
		Content:       "Rent was $1,200.",
		UsingRealData: true,
		IsStreaming:   true,
	})
	for _, want := range []string{"Rent was $1,200.", "connected accounts", "…"} {
		if !strings.Contains(assistant, want) {
			t.Errorf("assistant entry missing %q: %q", want, assistant)
		}
	}
}

func TestStatus(t *testing.T) {
	out := Status(types.StatusSnapshot{
		Status:          types.StatusActive,
		LastRefreshedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if !strings.Contains(out, "active") || !strings.Contains(out, "refreshed:") {
		t.Errorf("status = %q", out)
	}

	never := Status(types.StatusSnapshot{Status: types.StatusUnknown})
	if strings.Contains(never, "refreshed:") {
		t.Errorf("unrefreshed status shows a time: %q", never)
	}
}

func TestStreamPrinterAppendsDeltas(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf)
	id := types.EntryID("e1")

	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, IsStreaming: true})
	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "Based ", IsStreaming: true})
	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "Based on data", IsStreaming: true})
	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "Based on data"})
	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "ignored after done"})

	if got := buf.String(); got != "Based on data\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStreamPrinterReplacedContent(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf)
	id := types.EntryID("e1")

	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "partial", IsStreaming: true})
	p.Observe(types.ConversationEntry{ID: id, Role: types.RoleAssistant, Content: "Full answer."})

	if got := buf.String(); got != "partial\nFull answer.\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStreamPrinterIgnoresUserEntries(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf)
	p.Observe(types.ConversationEntry{ID: "u", Role: types.RoleUser, Content: "hi"})
	if buf.Len() != 0 {
		t.Errorf("output = %q", buf.String())
	}
}
