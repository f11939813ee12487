// Package schema defines the typed output of every pipeline stage and the
// checks applied to it before anything is persisted.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"game-exploration-be/pkg/exploration"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode parses a model reply into out and runs its validate tags.
// Any failure wraps exploration.ErrMalformedOutput.
func Decode(raw string, out interface{}) error {
	body := ExtractObject(raw)
	if body == "" {
		return fmt.Errorf("%w: no JSON object in reply", exploration.ErrMalformedOutput)
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", exploration.ErrMalformedOutput, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", exploration.ErrMalformedOutput, err)
	}
	return nil
}

// DecodeFileMap parses a {"path": "content"} reply.
func DecodeFileMap(raw string) (FileMap, error) {
	body := ExtractObject(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", exploration.ErrMalformedOutput)
	}
	var files FileMap
	if err := json.Unmarshal([]byte(body), &files); err != nil {
		return nil, fmt.Errorf("%w: file map: %v", exploration.ErrMalformedOutput, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: empty file map", exploration.ErrMalformedOutput)
	}
	return files, nil
}

// ExtractObject returns the first top-level JSON object in text, looking
// inside a ```json fence first. Returns "" when none is found.
func ExtractObject(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = text[3:]
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end, ok := matchBraces(text[start:])
	if !ok {
		return ""
	}
	return text[start : start+end+1]
}

// matchBraces returns the index of the '}' closing the '{' at position 0,
// skipping string literals and escaped quotes.
func matchBraces(s string) (int, bool) {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' {
				i++
				continue
			}
			if ch == '"' {
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
				return i, true
			}
		}
	}
	return 0, false
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
