package reasoning

import (
	"encoding/json"
	"fmt"
)

// The reasoning service is asked for pure JSON but routinely wraps it in
// prose or markdown fences. Extraction takes the first balanced object or
// array substring; decoding is strict so no partially-typed value escapes
// this boundary. Callers substitute their named fallback on any error.

// ExtractJSONObject returns the first balanced {...} substring of content.
func ExtractJSONObject(content string) (string, bool) {
	return extractBalanced(content, '{', '}')
}

// ExtractJSONArray returns the first balanced [...] substring of content.
func ExtractJSONArray(content string) (string, bool) {
	return extractBalanced(content, '[', ']')
}

func extractBalanced(content string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}

	return "", false
}

// DecodeObject extracts the first JSON object from content and unmarshals it
// into out.
func DecodeObject(content string, out any) error {
	raw, ok := ExtractJSONObject(content)
	if !ok {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode response object: %w", err)
	}
	return nil
}

// DecodeArray extracts the first JSON array from content and unmarshals it
// into out.
func DecodeArray(content string, out any) error {
	raw, ok := ExtractJSONArray(content)
	if !ok {
		return fmt.Errorf("no JSON array in response")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode response array: %w", err)
	}
	return nil
}
