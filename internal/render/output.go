// Package render formats transcript entries and status for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/user/finsight/internal/types"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// statusColors picks the color of each access status.
var statusColors = map[types.AccessStatus]*color.Color{
	types.StatusActive:    successColor,
	types.StatusPending:   warningColor,
	types.StatusSuspended: errorColor,
	types.StatusRevoked:   errorColor,
	types.StatusUnknown:   infoColor,
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	successColor.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	errorColor.Printf("✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	warningColor.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	infoColor.Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

// Entry renders one transcript entry.
func Entry(e types.ConversationEntry) string {
	if e.Role == types.RoleUser {
		return Styles.User.Render("> " + e.Content)
	}
	var b strings.Builder
	b.WriteString(Styles.Assistant.Render(e.Content))
	if e.UsingRealData {
		b.WriteString("\n")
		b.WriteString(Styles.Assistant.Render(Styles.RealData.Render("based on your connected accounts")))
	}
	if e.IsStreaming {
		b.WriteString(Styles.Streaming.Render(" …"))
	}
	return b.String()
}

// Transcript renders every entry separated by blank lines.
func Transcript(entries []types.ConversationEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, Entry(e))
	}
	return strings.Join(parts, "\n\n")
}

// Status renders an access status snapshot.
func Status(snap types.StatusSnapshot) string {
	c, ok := statusColors[snap.Status]
	if !ok {
		c = infoColor
	}
	line := Styles.Label.Render("access: ") + c.Sprint(string(snap.Status))
	if !snap.LastRefreshedAt.IsZero() {
		line += "\n" + Styles.Label.Render("refreshed: "+snap.LastRefreshedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return Styles.StatusBox.Render(line)
}

// StreamPrinter writes assistant text as it arrives. It is meant to be
// registered as a transcript observer.
type StreamPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[types.EntryID]string
	done    map[types.EntryID]bool
}

func NewStreamPrinter(w io.Writer) *StreamPrinter {
	return &StreamPrinter{
		w:       w,
		printed: make(map[types.EntryID]string),
		done:    make(map[types.EntryID]bool),
	}
}

// Observe prints the part of e not yet written. When the content was
// replaced rather than extended, the new content is printed on its own
// line.
func (p *StreamPrinter) Observe(e types.ConversationEntry) {
	if e.Role != types.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done[e.ID] {
		return
	}

	prev, seen := p.printed[e.ID]
	if !seen && !e.IsStreaming && e.Content == "" {
		return
	}
	switch {
	case strings.HasPrefix(e.Content, prev):
		fmt.Fprint(p.w, e.Content[len(prev):])
	default:
		fmt.Fprint(p.w, "\n"+e.Content)
	}
	p.printed[e.ID] = e.Content

	if !e.IsStreaming {
		fmt.Fprintln(p.w)
		p.done[e.ID] = true
	}
}
