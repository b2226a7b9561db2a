// Package extract pulls structured fields out of plain document text:
// generic "key: value" lines, a short preview and freight shipment fields.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

const (
	// MaxKeyValues bounds the pairs returned by KeyValues.
	MaxKeyValues = 20
	// PreviewChars is the preview length in characters.
	PreviewChars = 1200

	maxKeyChars   = 50
	maxValueChars = 200
)

// KeyValues returns up to max distinct "key: value" pairs, one per line, in
// document order. Lines with an empty side, a key over 50 characters or a
// value over 200 characters are ignored. max <= 0 uses MaxKeyValues.
func KeyValues(text string, max int) []domain.KeyValue {
	if max <= 0 {
		max = MaxKeyValues
	}

	pairs := []domain.KeyValue{}
	seen := make(map[domain.KeyValue]struct{})
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		kv := domain.KeyValue{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}
		if kv.Key == "" || kv.Value == "" {
			continue
		}
		if utf8.RuneCountInString(kv.Key) > maxKeyChars || utf8.RuneCountInString(kv.Value) > maxValueChars {
			continue
		}
		if _, dup := seen[kv]; dup {
			continue
		}
		seen[kv] = struct{}{}
		pairs = append(pairs, kv)
		if len(pairs) >= max {
			break
		}
	}
	return pairs
}

// Preview returns text unchanged when it fits in max characters, otherwise
// its first max characters followed by "...". max <= 0 uses PreviewChars.
func Preview(text string, max int) string {
	if max <= 0 {
		max = PreviewChars
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max]) + "..."
}

// Truncate cuts text to at most max characters.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}
