package store

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// document is the JSON form records take in the memory and SQL backends.
type document map[string]any

func toDocument(record any) (document, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	return doc, nil
}

func (d document) key(attr string) (string, error) {
	v, ok := d[attr].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("record has no %s", attr)
	}
	return v, nil
}

// apply merges fields into the document through a JSON round trip so values
// get the same encoding a fresh marshal would give them.
func (d document) apply(fields map[string]any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	var patch document
	if err := json.Unmarshal(b, &patch); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	for k, v := range patch {
		d[k] = v
	}
	return nil
}

// matches reports whether every attribute in expect holds the same value in d,
// comparing in the document's JSON encoding.
func (d document) matches(expect map[string]any) (bool, error) {
	if len(expect) == 0 {
		return true, nil
	}
	want := document{}
	if err := want.apply(expect); err != nil {
		return false, err
	}
	for k, v := range want {
		if !reflect.DeepEqual(d[k], v) {
			return false, nil
		}
	}
	return true, nil
}

func (d document) decode(out any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
