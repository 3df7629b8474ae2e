// Package budget keeps queries within a token limit before they are sent
// to the insights backend.
package budget

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultModel selects the tokenizer when none is configured.
const DefaultModel = "gpt-4"

// Budget counts and trims query tokens.
type Budget struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// New creates a budget of maxTokens using the tokenizer for model.
// Unknown models fall back to cl100k_base. A non-positive maxTokens
// disables trimming.
func New(model string, maxTokens int) (*Budget, error) {
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budget{
		tokenizer: enc,
		maxTokens: maxTokens,
	}, nil
}

// Count returns the token count of text.
func (b *Budget) Count(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Max returns the configured limit.
func (b *Budget) Max() int {
	return b.maxTokens
}

// Trim returns query cut to the first maxTokens tokens. A rune split by a
// byte-level token boundary is dropped.
func (b *Budget) Trim(query string) string {
	if b.maxTokens <= 0 {
		return query
	}
	tokens := b.tokenizer.Encode(query, nil, nil)
	if len(tokens) <= b.maxTokens {
		return query
	}
	slog.Debug("query over token budget, trimming", "tokens", len(tokens), "max", b.maxTokens)
	return strings.TrimSpace(wholeRunes(b.tokenizer.Decode(tokens[:b.maxTokens])))
}

// wholeRunes cuts s back to its longest valid UTF-8 prefix.
func wholeRunes(s string) string {
	for !utf8.ValidString(s) {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
