// Package wire defines the serialized form of Lama values, faults and
// diagnostics, and the codecs the evaluation service speaks. Messages
// are CBOR with integer keys; the encoder runs in canonical mode so equal
// messages always produce equal bytes.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes v as canonical CBOR.
func Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

// CBORCodec carries messages as CBOR. It satisfies both connect.Codec and
// the gRPC encoding.Codec interface, so one value serves both transports.
type CBORCodec struct{}

// Name is used as the content subtype: application/cbor for Connect and
// application/grpc+cbor for gRPC.
func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Marshal(v any) ([]byte, error) { return Marshal(v) }

func (CBORCodec) Unmarshal(data []byte, v any) error { return Unmarshal(data, v) }

// JSONCodec carries messages as plain JSON for curl and browser clients.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}
