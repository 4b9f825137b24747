package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes collection snapshots.
type Codec[T any] interface {
	Name() string
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// JSONCodec stores snapshots as JSON, the same shape the API returns.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Name() string { return "json" }

func (JSONCodec[T]) Encode(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

// MsgpackCodec stores snapshots as MessagePack, honouring json struct tags.
type MsgpackCodec[T any] struct{}

func (MsgpackCodec[T]) Name() string { return "msgpack" }

func (MsgpackCodec[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec[T]) Decode(b []byte) (T, error) {
	var v T
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&v)
	return v, err
}

var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// CBORCodec stores snapshots as CBOR. Timestamps keep nanosecond precision.
type CBORCodec[T any] struct{}

func (CBORCodec[T]) Name() string { return "cbor" }

func (CBORCodec[T]) Encode(v T) ([]byte, error) { return cborEncMode.Marshal(v) }

func (CBORCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := cbor.Unmarshal(b, &v)
	return v, err
}

// CodecByName resolves a configured codec name. An empty name selects JSON.
func CodecByName[T any](name string) (Codec[T], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec[T]{}, nil
	case "msgpack":
		return MsgpackCodec[T]{}, nil
	case "cbor":
		return CBORCodec[T]{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown codec %q", name)
	}
}
