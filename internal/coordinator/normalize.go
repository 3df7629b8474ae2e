package coordinator

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/finsight/pkg/insights"
)

var htmlTag = regexp.MustCompile(`<(p|br|ul|ol|li|strong|em|b|i|h[1-6]|div|span|table)\b[^>]*>`)

// NormalizeInsight turns the insights value of a generate response into
// display text. Shapes are tried in order:
//
//  1. a plain string
//  2. an object with a string "insight" field
//  3. an object with a string "text" field
//  4. anything else, serialized as JSON
//
// HTML bodies are converted to markdown. A nil value yields "".
func NormalizeInsight(v any) string {
	text := extractInsight(v)
	if htmlTag.MatchString(text) {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = md
		}
	}
	return strings.TrimSpace(text)
}

func extractInsight(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		if s, ok := val["insight"].(string); ok {
			return s
		}
		if s, ok := val["text"].(string); ok {
			return s
		}
	}
	s, err := insights.MarshalString(v)
	if err != nil {
		return ""
	}
	return s
}
