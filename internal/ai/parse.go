package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FieldKind tells the parser how to coerce a recovered field.
type FieldKind int

// Supported field kinds
const (
	KindString FieldKind = iota
	KindStringList
)

// Field declares one expected field of a completion response.
type Field struct {
	Name string
	Kind FieldKind
}

// ParseResult holds the fields recovered from a completion response.
// Partial is true when the response was malformed and the values were
// salvaged rather than strictly parsed; callers must still validate that the
// field they most depend on is non-empty.
type ParseResult struct {
	Partial bool

	strings map[string]string
	lists   map[string][]string
}

// String returns the recovered value of a string field, or "" if the field
// was not recovered.
func (r *ParseResult) String(name string) string {
	return r.strings[name]
}

// StringList returns the recovered value of a list field, or nil if the
// field was not recovered.
func (r *ParseResult) StringList(name string) []string {
	return r.lists[name]
}

// Has reports whether the named field was recovered.
func (r *ParseResult) Has(name string) bool {
	if _, ok := r.strings[name]; ok {
		return true
	}
	_, ok := r.lists[name]
	return ok
}

// rawPreviewLimit bounds how much raw upstream text a parse error may carry.
// Full responses are never propagated; they can echo prompt internals.
const rawPreviewLimit = 200

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Parse converts raw completion text into a ParseResult. The upstream is
// expected to return a JSON object but is observed to wrap it in a code
// fence, truncate it mid-string, or surround it with prose, so parsing
// proceeds in tiers:
//
//  1. strip a wrapping code fence and attempt a strict JSON parse;
//  2. on failure, salvage expected fields with targeted patterns (tolerating
//     a truncated final string), and independently retry a strict parse with
//     the missing closing braces appended;
//  3. if at least one expected field was recovered, return a partial result;
//  4. otherwise fail with a bounded preview of the raw text.
func Parse(raw string, fields []Field) (*ParseResult, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no expected fields declared", ErrInvalidConfig)
	}

	body := StripFence(raw)
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyResponse
	}

	if result, ok := strictParse(body, fields); ok {
		return result, nil
	}

	// Tier 2a: close an unterminated object and retry the strict parse. This
	// repairs the common case of an output-length cap cutting the object off
	// right after a complete field.
	if repaired, changed := closeBraces(body); changed {
		if result, ok := strictParse(repaired, fields); ok {
			result.Partial = true
			return result, nil
		}
	}

	// Tier 2b: field-level salvage from the broken text.
	result := &ParseResult{
		Partial: true,
		strings: make(map[string]string),
		lists:   make(map[string][]string),
	}
	recovered := 0
	for _, f := range fields {
		switch f.Kind {
		case KindString:
			if v, ok := salvageString(body, f.Name); ok {
				result.strings[f.Name] = v
				recovered++
			}
		case KindStringList:
			if v, ok := salvageStringList(body, f.Name); ok {
				result.lists[f.Name] = v
				recovered++
			}
		}
	}
	if recovered > 0 {
		return result, nil
	}

	return nil, fmt.Errorf("%w: no expected field recoverable from %q",
		ErrInvalidResponse, Preview(raw))
}

// ParseWithTextFallback behaves like Parse, but when nothing recognizable as
// JSON can be recovered and the response is non-empty prose, the whole text
// is kept as the value of textField. Some models answer a JSON-shaped prompt
// with the bare requested text; for scenes where one field dominates the
// result that answer is still usable.
func ParseWithTextFallback(raw string, fields []Field, textField string) (*ParseResult, error) {
	result, err := Parse(raw, fields)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrInvalidResponse) {
		return nil, err
	}

	text := strings.TrimSpace(StripFence(raw))
	if text == "" || looksLikeJSON(text) {
		return nil, err
	}

	return &ParseResult{
		Partial: true,
		strings: map[string]string{textField: text},
		lists:   make(map[string][]string),
	}, nil
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// StripFence removes a wrapping markdown code fence, if present, and trims
// surrounding whitespace. Text without a fence is returned trimmed.
func StripFence(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// Preview returns a bounded prefix of raw for diagnostics.
func Preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= rawPreviewLimit {
		return raw
	}
	return raw[:rawPreviewLimit] + "..."
}

// strictParse attempts a strict JSON object parse and coerces the declared
// fields. Returns ok=false if the text is not a valid JSON object.
func strictParse(body string, fields []Field) (*ParseResult, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, false
	}

	result := &ParseResult{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
	}
	for _, f := range fields {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			continue
		}
		switch f.Kind {
		case KindString:
			if s, ok := v.(string); ok {
				result.strings[f.Name] = s
			}
		case KindStringList:
			items, ok := v.([]any)
			if !ok {
				continue
			}
			list := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok && s != "" {
					list = append(list, s)
				}
			}
			result.lists[f.Name] = list
		}
	}
	return result, true
}

// closeBraces appends the closing braces and brackets an unterminated JSON
// object is missing, inferred from the nesting depth outside string values.
// Returns the repaired text and whether anything was appended.
func closeBraces(body string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(body); i++ {
		c := body[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Structural characters inside strings don't nest.
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 {
		return body, false
	}

	repaired := body
	if inString {
		// A string truncated mid-value needs its closing quote first.
		repaired = trimIncompleteEscape(repaired) + `"`
	} else {
		repaired = strings.TrimRight(repaired, " \t\n\r,")
	}
	for i := len(stack) - 1; i >= 0; i-- {
		repaired += string(stack[i])
	}
	return repaired, true
}

// salvageString extracts the value of a string field from broken JSON text.
// A complete quoted value is preferred; a value cut off by truncation is
// recovered up to the last complete escape sequence.
func salvageString(body, name string) (string, bool) {
	complete := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	if m := complete.FindStringSubmatch(body); m != nil {
		return unescapeFragment(m[1]), true
	}

	truncated := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)`)
	if m := truncated.FindStringSubmatch(body); m != nil && m[1] != "" {
		return unescapeFragment(trimIncompleteEscape(m[1])), true
	}

	return "", false
}

// salvageStringList extracts a flat string array field from broken JSON text.
// Only a complete bracketed list is recovered; a truncated list would yield
// a silently shortened value, which is worse than no value for list fields.
func salvageStringList(body, name string) ([]string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*\[([^\]]*)\]`)
	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}

	elemRe := regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	var items []string
	for _, em := range elemRe.FindAllStringSubmatch(m[1], -1) {
		if v := unescapeFragment(em[1]); v != "" {
			items = append(items, v)
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// trimIncompleteEscape removes a trailing escape sequence that truncation
// cut in half, so the remaining fragment decodes cleanly.
func trimIncompleteEscape(s string) string {
	// Count trailing backslashes; an odd count means the last one starts an
	// escape with no following character.
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	if n%2 == 1 {
		return s[:len(s)-1]
	}

	// A \u escape needs four hex digits; drop it if any are missing.
	if idx := strings.LastIndex(s, `\u`); idx >= 0 && len(s)-idx < 6 {
		return s[:idx]
	}
	return s
}

// unescapeFragment decodes the escape sequences in a JSON string fragment.
func unescapeFragment(s string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &decoded); err == nil {
		return decoded
	}
	// Fall back to the escapes the upstream actually produces.
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}
