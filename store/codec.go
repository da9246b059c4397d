package store

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

const (
	// CodecJSON selects [JSONCodec].
	CodecJSON = "json"
	// CodecCBOR selects [CBORCodec].
	CodecCBOR = "cbor"
)

// Codec turns records into stored values and back. Compare-and-swap works
// on encoded bytes, so an implementation must produce identical bytes for
// equal values.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes records as JSON. Struct fields are emitted in
// declaration order, which keeps the output stable.
type JSONCodec struct{}

// Name implements [Codec].
func (JSONCodec) Name() string { return CodecJSON }

// Marshal implements [Codec].
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements [Codec].
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBORCodec encodes records as CBOR using Core Deterministic Encoding
// (RFC 8949 §4.2). Field names fall back to json struct tags. Text holding
// invalid UTF-8 decodes as-is, so one such record cannot poison reads of its
// tree.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec builds a [CBORCodec].
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		UTF8:           cbor.UTF8DecodeInvalid,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

// Name implements [Codec].
func (c *CBORCodec) Name() string { return CodecCBOR }

// Marshal implements [Codec].
func (c *CBORCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

// Unmarshal implements [Codec].
func (c *CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// CodecByName resolves a configured codec name. The empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecCBOR:
		return NewCBORCodec()
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}
