package llm

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a model response contains no JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in model response")

// ExtractJSONObject pulls the first balanced {...} span out of a model
// response. Models wrap JSON in prose or markdown fences often enough that
// every call site needs this, so the scraping lives here instead of inline
// regexes at each caller.
func ExtractJSONObject(raw string) ([]byte, error) {
	s := StripCodeFences(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, ErrNoJSONObject
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
				return []byte(s[start : i+1]), nil
			}
		}
	}
	return nil, ErrNoJSONObject
}

// StripCodeFences removes markdown code-fence markers (``` and ```json)
// from a model response, leaving the fenced content in place.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
