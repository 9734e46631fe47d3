package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject reports that no balanced top-level JSON object was found.
var ErrNoObject = errors.New("no balanced object in completion")

// ExtractObject pulls the first top-level {...} object out of raw
// generation output and unmarshals it into out. Completions are
// untrusted text: they may wrap the object in markdown fences, prose,
// or trailing commentary, and may carry Python-style literals. The
// extractor strips fences, scans for the outermost balanced brace
// span, normalizes the usual artifacts, and only then parses.
func ExtractObject(raw string, out any) error {
	span, err := ObjectSpan(StripFences(raw))
	if err != nil {
		return err
	}
	span = normalizeLiterals(span)
	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("parse extracted object: %w", err)
	}
	return nil
}

// StripFences removes markdown code-fence marker lines (``` or ```json).
func StripFences(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ObjectSpan returns the first outermost balanced {...} span found by
// brace-depth scanning. Braces inside string literals are ignored.
func ObjectSpan(raw string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range raw {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", ErrNoObject
}

// normalizeLiterals rewrites Python-style bare literals (True, False,
// None) into JSON ones and fixes the doubled polite suffix the Korean
// models occasionally emit ("다요." for "다.").
func normalizeLiterals(span string) string {
	var b strings.Builder
	b.Grow(len(span))
	inString := false
	escaped := false
	runes := []rune(span)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if replacement, n := matchBareLiteral(runes[i:]); n > 0 {
			b.WriteString(replacement)
			i += n - 1
			continue
		}
		b.WriteRune(r)
	}
	out := strings.ReplaceAll(b.String(), "다요.", "다.")
	return strings.ReplaceAll(out, "요요.", "요.")
}

var bareLiterals = []struct {
	token       string
	replacement string
}{
	{"True", "true"},
	{"False", "false"},
	{"None", "null"},
}

func matchBareLiteral(runes []rune) (string, int) {
	for _, lit := range bareLiterals {
		token := []rune(lit.token)
		if len(runes) < len(token) {
			continue
		}
		match := true
		for i, tr := range token {
			if runes[i] != tr {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		// Must be a bare token, not part of an identifier.
		if len(runes) > len(token) && isWordRune(runes[len(token)]) {
			continue
		}
		return lit.replacement, len(token)
	}
	return "", 0
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
