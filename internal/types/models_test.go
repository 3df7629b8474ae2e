// internal/types/models_test.go
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseAccessStatus(t *testing.T) {
	tests := []struct {
		in   string
		want AccessStatus
	}{
		{"active", StatusActive},
		{"pending", StatusPending},
		{"suspended", StatusSuspended},
		{"revoked", StatusRevoked},
		{"unknown", StatusUnknown},
		{"", StatusUnknown},
		{"ACTIVE", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseAccessStatus(tt.in); got != tt.want {
			t.Errorf("ParseAccessStatus(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestNewRequestRecord(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewRequestRecord(ScopeSuggested, now)
	if rec.ID == "" {
		t.Error("expected request id")
	}
	if !rec.IssuedAt.Equal(now) {
		t.Errorf("expected issued at %v, got %v", now, rec.IssuedAt)
	}
	if rec.Scope != ScopeSuggested {
		t.Errorf("expected scope suggested, got %s", rec.Scope)
	}
}

func TestSessionStateNilSessionSerialization(t *testing.T) {
	state := SessionState{UserID: "u1"}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}

	var decoded SessionState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.SessionID != nil {
		t.Errorf("expected nil session id, got %v", *decoded.SessionID)
	}
	if decoded.UserID != "u1" {
		t.Errorf("expected user u1, got %s", decoded.UserID)
	}
}
