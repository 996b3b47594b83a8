package offChainSigning

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Field struct {
	Key   string
	Value interface{}
}

// Body is an ordered JSON object. The venue re-derives the signed body from the
// raw request bytes, so the key order written here is part of the signed data.
type Body []Field

// EmptyBody returns a fresh body with no fields.
func EmptyBody() Body {
	return Body{}
}

// Set returns a copy of b with key set to value. b itself is never modified.
func (b Body) Set(key string, value interface{}) Body {
	out := make(Body, len(b), len(b)+1)
	copy(out, b)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Key: key, Value: value})
}

func (b Body) Get(key string) (interface{}, bool) {
	for _, f := range b {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (b Body) IsEmpty() bool {
	return len(b) == 0
}

// MarshalJSON writes compact JSON with fields in insertion order. An empty
// body encodes as {}.
func (b Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalCompact(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalCompact(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order of the input.
func (b *Body) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("body must be a JSON object")
	}

	out := Body{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected body key %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode body field %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// String returns the canonical encoding of the body.
func (b Body) String() (string, error) {
	data, err := b.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
