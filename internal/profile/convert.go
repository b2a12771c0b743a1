package profile

import (
	"encoding/json"
	"fmt"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// ToDocument converts a typed value into a document. Member order follows
// the struct field order.
func ToDocument(v any) (document.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return document.Value{}, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return document.Value{}, fmt.Errorf("failed to convert %T: %w", v, err)
	}
	return doc, nil
}

// FromDocument decodes doc into a typed profile.
func FromDocument(doc document.Value) (*UeProfile, error) {
	var p UeProfile
	if err := decodeInto(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GeneratorSpecFromDocument decodes doc into a generation template.
func GeneratorSpecFromDocument(doc document.Value) (*GeneratorSpec, error) {
	var spec GeneratorSpec
	if err := decodeInto(doc, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func decodeInto(doc document.Value, out any) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return nil
}
