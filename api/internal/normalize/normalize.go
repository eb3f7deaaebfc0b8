// Package normalize turns raw model output into JSON values the handlers can relay.
//
// Models are told to answer with JSON only, but they sometimes wrap it in prose or
// markdown fences. Parse first tries the whole text, then the span between the first
// '{' and the last '}'. The span heuristic is not JSON-aware: literal braces that
// appear before the real payload make it mis-extract.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind tags a normalization failure.
type Kind string

const (
	MalformedOutput Kind = "malformed_output"
	UnexpectedShape Kind = "unexpected_shape"
)

// MaxItems caps the lists returned by keyed operations.
const MaxItems = 10

// Error is returned when raw output cannot be turned into the expected value.
// Raw holds the original text for MalformedOutput and the parsed candidate for
// UnexpectedShape.
type Error struct {
	Kind Kind
	Key  string
	Raw  any
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnexpectedShape:
		return fmt.Sprintf("normalize: %s: key %q missing or not a list", e.Kind, e.Key)
	default:
		if e.Err != nil {
			return fmt.Sprintf("normalize: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("normalize: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a normalization failure of kind k.
func IsKind(err error, k Kind) bool {
	var ne *Error
	return errors.As(err, &ne) && ne.Kind == k
}

// Parse returns the JSON value carried by raw.
func Parse(raw string) (any, error) {
	v, err := decodeStrict(raw)
	if err == nil {
		return v, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, &Error{Kind: MalformedOutput, Raw: raw, Err: err}
	}

	v, err = decodeStrict(raw[start : end+1])
	if err != nil {
		return nil, &Error{Kind: MalformedOutput, Raw: raw, Err: err}
	}
	return v, nil
}

// List parses raw and returns {key: items} where items is the list stored under key,
// cut to the first max entries.
func List(raw, key string, max int) (map[string]any, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Kind: UnexpectedShape, Key: key, Raw: v}
	}
	items, ok := obj[key].([]any)
	if !ok {
		return nil, &Error{Kind: UnexpectedShape, Key: key, Raw: v}
	}
	if max >= 0 && len(items) > max {
		items = items[:max]
	}
	return map[string]any{key: items}, nil
}

// decodeStrict decodes exactly one JSON value; numbers stay json.Number so they are
// relayed byte for byte.
func decodeStrict(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// Compact renders v as single-line JSON.
func Compact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(buf.String())
}
