package parser

import (
	"encoding/json"
	"strings"
)

// extractCandidates collects candidate JSON strings from raw model output in
// priority order: the whole payload, a fenced code block, and the first
// balanced object substring. Candidates are tried in order; the first one
// that decodes to an object with a recognizable action key wins.
func extractCandidates(raw string) []string {
	candidates := []string{raw}

	if block, ok := fencedBlock(raw, "```json"); ok {
		candidates = append(candidates, block)
	} else if block, ok := fencedBlock(raw, "```"); ok && strings.HasPrefix(block, "{") {
		candidates = append(candidates, block)
	}

	if obj := firstJSONObject(raw); obj != "" {
		candidates = append(candidates, obj)
	}

	return candidates
}

// ExtractObject returns the first JSON object that can be decoded from raw
// model output, applying the same candidate extraction and lenient decoding
// as Parse but without requiring an action key. Callers that speak their own
// object shapes (planning, reflection) build on this.
func ExtractObject(raw string) (map[string]any, bool) {
	for _, candidate := range extractCandidates(strings.TrimSpace(raw)) {
		if obj, ok := decodeObject(candidate); ok {
			return obj, true
		}
	}
	return nil, false
}

// fencedBlock returns the trimmed contents of the first code block opened by
// the given fence. A missing closing fence captures through to the end.
func fencedBlock(raw, fence string) (string, bool) {
	idx := strings.Index(raw, fence)
	if idx == -1 {
		return "", false
	}
	rest := raw[idx+len(fence):]
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// firstJSONObject returns the first balanced {...} substring of s. Braces
// inside quoted strings do not affect nesting, so prose like
// `{"message": "use { sparingly"}` extracts correctly.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeObject parses s as a JSON object, retrying once with trailing commas
// stripped. Non-object payloads (arrays, scalars) are rejected.
func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m, m != nil
	}
	if err := json.Unmarshal([]byte(stripTrailingCommas(s)), &m); err == nil {
		return m, m != nil
	}
	return nil, false
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket, a common model output defect. Commas inside strings are kept.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
