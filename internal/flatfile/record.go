package flatfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Record is one JSON object from the user file. It keeps keys in file order
// and values as their original bytes, so fields the tools never touch are
// written back unchanged.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// Keys returns the field names in file order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Raw returns the encoded value of key.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String returns the value of key if it is a JSON string.
func (r *Record) String(key string) (string, bool) {
	raw, ok := r.values[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Bool returns the value of key if it is a JSON boolean.
func (r *Record) Bool(key string) (bool, bool) {
	raw, ok := r.values[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Set stores value under key. Existing keys keep their position; new keys
// are appended. A nil value is stored as JSON null.
func (r *Record) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if r.values == nil {
		r.values = make(map[string]json.RawMessage)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = raw
	return nil
}

// UnmarshalJSON decodes an object, preserving key order. A repeated key keeps
// its first position and its last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("user record must be a JSON object")
	}

	r.keys = r.keys[:0]
	r.values = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = raw
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the record with keys in their original order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(r.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeString encodes s without HTML escaping, matching how the file is written.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}
