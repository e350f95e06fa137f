package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Encode flattens a bson tagged struct (or a map) into Fields. Every store
// keeps values in this form, so filters and decoding behave the same on all
// of them.
func Encode(v any) (Fields, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return Fields(m), nil
}

// Decode fills v from the document fields.
func Decode(doc Document, v any) error {
	raw, err := bson.Marshal(bson.M(doc.Fields))
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	if err := bson.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}

// NormalizeValue converts a Go value into its stored form, e.g. time.Time
// into a bson date.
func NormalizeValue(v any) (any, error) {
	f, err := Encode(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return f["v"], nil
}
