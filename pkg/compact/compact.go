package compact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Sentinel marks element 0 of a compacted array.
const Sentinel = "$__"

// ErrMalformed is returned when a compacted array cannot be expanded.
var ErrMalformed = errors.New("compact: malformed array")

// Encode compacts a sequence of JSON objects into the sentinel form.
// Field names come from the first object; each object contributes one row of
// values in its own field order. An empty input encodes as [].
func Encode(objects []json.RawMessage) (json.RawMessage, error) {
	if len(objects) == 0 {
		return json.RawMessage("[]"), nil
	}

	keys, _, err := objectView(objects[0])
	if err != nil {
		return nil, fmt.Errorf("compact: element 0: %w", err)
	}

	out := make([]any, 0, len(objects)+2)
	out = append(out, Sentinel, keys)
	for i, obj := range objects {
		_, values, err := objectView(obj)
		if err != nil {
			return nil, fmt.Errorf("compact: element %d: %w", i, err)
		}
		out = append(out, values)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("compact: marshal: %w", err)
	}
	return b, nil
}

// Decode expands data into one JSON object per element. data may be the
// compacted form or a conventional array; conventional elements are returned
// unchanged. A row with fewer values than there are field names is an error;
// extra trailing values are ignored.
func Decode(data []byte) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("compact: decode array: %w", err)
	}
	if len(elems) == 0 || !isSentinel(elems[0]) {
		return elems, nil
	}
	if len(elems) < 2 {
		return nil, fmt.Errorf("%w: missing field names", ErrMalformed)
	}

	var keys []string
	if err := json.Unmarshal(elems[1], &keys); err != nil {
		return nil, fmt.Errorf("%w: field names: %v", ErrMalformed, err)
	}

	out := make([]json.RawMessage, 0, len(elems)-2)
	for i, rowData := range elems[2:] {
		var row []json.RawMessage
		if err := json.Unmarshal(rowData, &row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, i, err)
		}
		if len(row) < len(keys) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				ErrMalformed, i, len(row), len(keys))
		}
		obj, err := zip(keys, row)
		if err != nil {
			return nil, fmt.Errorf("compact: row %d: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Applies reports whether values of type t are compacted: structs and
// pointers to structs. Sequences, maps and primitives are not.
func Applies(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// objectView returns the ordered field names and raw values of a JSON object.
func objectView(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("not an object: %s", truncate(raw))
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func zip(keys []string, values []json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(values[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isSentinel(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == Sentinel
}

func truncate(raw []byte) string {
	const limit = 32
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
