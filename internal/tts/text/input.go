// Package text turns the values handed to the synthesiser into the single
// string that is spoken.
package text

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RecordTextKey is the field of a Record that holds its text.
const RecordTextKey = "text"

// Input is an upstream value that can be rendered as text. The variants are
// Plain, Record and Bytes.
type Input interface {
	Text() (string, error)
	isInput()
}

// Plain is text as-is.
type Plain string

// Text returns the string unchanged.
func (p Plain) Text() (string, error) {
	return string(p), nil
}

func (Plain) isInput() {}

// Record is a structured upstream value such as a decoded JSON object.
type Record map[string]any

// Text returns the string under RecordTextKey, or the whole record as JSON
// when there is no such string.
func (r Record) Text() (string, error) {
	if value, ok := r[RecordTextKey].(string); ok {
		return value, nil
	}

	if len(r) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(map[string]any(r))
	if err != nil {
		return "", fmt.Errorf("failed to render record as text: %w", err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (Record) isInput() {}

// Bytes is raw content, decoded as UTF-8 with invalid sequences dropped.
type Bytes []byte

// Text decodes the bytes.
func (b Bytes) Text() (string, error) {
	return strings.ToValidUTF8(string(b), ""), nil
}

func (Bytes) isInput() {}

// Merge trims text and the rendering of upstream and joins the non-empty
// parts with a newline. upstream may be nil.
func Merge(text string, upstream Input) (string, error) {
	parts := make([]string, 0, 2)

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		parts = append(parts, trimmed)
	}

	if upstream != nil {
		converted, err := upstream.Text()
		if err != nil {
			return "", err
		}

		if trimmed := strings.TrimSpace(converted); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, "\n"), nil
}
