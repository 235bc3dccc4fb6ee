package compact

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// List is a slice that marshals through the columnar compaction transform
// when its element type is a struct. A nil List marshals as [].
type List[T any] []T

// MarshalJSON implements json.Marshaler.
func (l List[T]) MarshalJSON() ([]byte, error) {
	if !Applies(elemType[T]()) {
		if l == nil {
			return []byte("[]"), nil
		}
		return json.Marshal([]T(l))
	}

	objects := make([]json.RawMessage, len(l))
	for i := range l {
		b, err := json.Marshal(l[i])
		if err != nil {
			return nil, fmt.Errorf("compact: element %d: %w", i, err)
		}
		objects[i] = b
	}
	return Encode(objects)
}

// UnmarshalJSON implements json.Unmarshaler. Both the compacted and the
// conventional array forms are accepted.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	if !Applies(elemType[T]()) {
		return json.Unmarshal(data, (*[]T)(l))
	}

	objects, err := Decode(data)
	if err != nil {
		return err
	}
	out := make(List[T], len(objects))
	for i, obj := range objects {
		if err := json.Unmarshal(obj, &out[i]); err != nil {
			return fmt.Errorf("compact: element %d: %w", i, err)
		}
	}
	*l = out
	return nil
}

func elemType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
