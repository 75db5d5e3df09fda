package generation

import (
	"fmt"
	"strings"
)

// ExtractObject returns the first balanced {...} span in raw. Braces inside
// JSON string literals are ignored, so prose or markdown fences around the
// object do not matter.
func ExtractObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: %w: no JSON object in reply", ErrProviderFailure, ErrInvalidResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
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
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: %w: unbalanced JSON object in reply", ErrProviderFailure, ErrInvalidResponse)
}
