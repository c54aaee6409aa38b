package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedError means the service answered but the payload could not be
// decoded, even after the lenient fallback.
type MalformedError struct {
	Op  string
	Raw string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v (raw: %s)", e.Op, e.Err, e.Raw)
}

func (e *MalformedError) Unwrap() error { return e.Err }

var (
	codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	fenceRe     = regexp.MustCompile("```(?:json)?")
	arrayRe     = regexp.MustCompile(`(?s)\[.*\]`)
	objectRe    = regexp.MustCompile(`(?s)\{.*\}`)
)

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// DecodeLenient parses model output into v. Markdown code fences are
// removed first; if that still fails, the first bracketed array (or object)
// in the text is parsed instead.
func DecodeLenient(s string, v any) error {
	text := stripCodeBlock(s)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	for _, re := range []*regexp.Regexp{arrayRe, objectRe} {
		if m := re.FindString(text); m != "" {
			if json.Unmarshal([]byte(m), v) == nil {
				return nil
			}
		}
	}
	return err
}

// decodeEmbedded decodes a response field that the service sends either as
// JSON or as a string holding JSON.
func decodeEmbedded(op string, raw json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return &MalformedError{Op: op, Err: fmt.Errorf("missing field")}
	}
	text := trimmed
	if strings.HasPrefix(trimmed, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return &MalformedError{Op: op, Raw: truncate(trimmed, 200), Err: err}
		}
	}
	if err := DecodeLenient(text, v); err != nil {
		return &MalformedError{Op: op, Raw: truncate(text, 200), Err: err}
	}
	return nil
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %s", b)
	}
	*f = flexID(n.String())
	return nil
}
