package persist

import "encoding/json"

// Codec converts a typed value to and from the opaque bytes the store and
// journal deal in (spec §9: "the store and journal never see anything but
// bytes"). Call sites supply a Codec[T] per payload type; persist facades
// never inspect the bytes themselves.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec is the default Codec, round-tripping any JSON-marshalable type.
type JSONCodec[T any] struct{}

// Encode marshals value to JSON.
func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

// Decode unmarshals data into a zero-valued T.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}
