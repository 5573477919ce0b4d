package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/book-expert/doubao-tts-service/internal/tts/audio"
)

// Namespace is the fixed namespace of bidirectional TTS sessions.
const Namespace = "BidirectionalTTS"

// User identifies the end user of a session.
type User struct {
	UID string `json:"uid"`
}

// Additions are extra synthesis switches. They travel as a JSON string
// inside req_params, not as a nested object.
type Additions struct {
	DisableMarkdownFilter        bool `json:"disable_markdown_filter"`
	EnableLanguageDetector       bool `json:"enable_language_detector"`
	EnableLatexTN                bool `json:"enable_latex_tn"`
	MaxLengthToFilterParenthesis int  `json:"max_length_to_filter_parenthesis"`
}

// ReqParams is the req_params object of the session metadata.
type ReqParams struct {
	Speaker     string       `json:"speaker"`
	AudioParams audio.Params `json:"audio_params"`
	Additions   string       `json:"additions"`
	Text        string       `json:"text,omitempty"`
}

// Metadata is the StartSession payload; TaskRequest adds the text.
type Metadata struct {
	User      User      `json:"user"`
	Namespace string    `json:"namespace"`
	ReqParams ReqParams `json:"req_params"`
}

// NewMetadata builds session metadata for a speaker.
func NewMetadata(uid, speaker string, params audio.Params, additions Additions) (Metadata, error) {
	encodedAdditions, err := marshalJSON(additions)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to marshal additions: %w", err)
	}

	return Metadata{
		User:      User{UID: uid},
		Namespace: Namespace,
		ReqParams: ReqParams{
			Speaker:     speaker,
			AudioParams: params,
			Additions:   string(encodedAdditions),
			Text:        "",
		},
	}, nil
}

// StartSessionPayload encodes the metadata without text.
func (m Metadata) StartSessionPayload() ([]byte, error) {
	m.ReqParams.Text = ""

	return marshalJSON(m)
}

// TaskPayload encodes the metadata with the text to synthesise.
func (m Metadata) TaskPayload(text string) ([]byte, error) {
	m.ReqParams.Text = text

	return marshalJSON(m)
}

// marshalJSON encodes v without HTML escaping and without a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
