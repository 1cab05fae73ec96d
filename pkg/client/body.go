package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BodyKind is the declared content kind of a response body
type BodyKind int

const (
	// KindText is any non-JSON body
	KindText BodyKind = iota
	// KindJSON is a body declared as application/json
	KindJSON
)

func (k BodyKind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "text"
}

// Body is a response body classified by its Content-Type
type Body struct {
	Kind BodyKind
	Raw  []byte
}

func newBody(contentType string, raw []byte) *Body {
	kind := KindText
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		kind = KindJSON
	}
	return &Body{Kind: kind, Raw: raw}
}

// Text returns the raw body as a string
func (b *Body) Text() string {
	if b == nil {
		return ""
	}
	return string(b.Raw)
}

// Decode parses a structured body into v
func (b *Body) Decode(v interface{}) error {
	if b == nil || len(b.Raw) == 0 {
		return nil
	}
	if b.Kind != KindJSON {
		return fmt.Errorf("failed to parse response: expected json, got %s", b.Kind)
	}
	if err := json.Unmarshal(b.Raw, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Value returns the parsed body: the decoded JSON value for structured
// bodies and the text otherwise.
func (b *Body) Value() (interface{}, error) {
	if b == nil {
		return nil, nil
	}
	if b.Kind != KindJSON {
		return b.Text(), nil
	}
	var v interface{}
	if err := b.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
