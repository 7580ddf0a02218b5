package session

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractText pulls readable text from a message content field.
// content may be a plain string or an array of parts, each either
// a bare string or an object carrying a "text" field. Unknown part
// shapes contribute nothing.
func extractText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if !content.IsArray() {
		return ""
	}
	var parts []string
	content.ForEach(func(_, part gjson.Result) bool {
		if part.Type == gjson.String {
			parts = append(parts, part.Str)
			return true
		}
		if t := part.Get("text"); t.Type == gjson.String {
			parts = append(parts, t.Str)
		}
		return true
	})
	return strings.Join(parts, "")
}

// extractTypedText is the stricter Claude variant: array parts
// count only when explicitly typed "text".
func extractTypedText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if !content.IsArray() {
		return ""
	}
	var parts []string
	content.ForEach(func(_, part gjson.Result) bool {
		if part.Get("type").Str == "text" {
			parts = append(parts, part.Get("text").Str)
		}
		return true
	})
	return strings.Join(parts, "")
}

// extractGeminiParts joins a Gemini history turn's parts. Parts is
// either a raw string or an array of {text} objects joined by
// newlines.
func extractGeminiParts(parts gjson.Result) string {
	if parts.Type == gjson.String {
		return parts.Str
	}
	if !parts.IsArray() {
		return ""
	}
	var texts []string
	parts.ForEach(func(_, part gjson.Result) bool {
		texts = append(texts, part.Get("text").Str)
		return true
	})
	return strings.Join(texts, "\n")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
