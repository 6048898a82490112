package controlplane

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package's messages are framed
// with. The admin surface has no protobuf schema (there is nothing to
// generate it from — see DESIGN.md), so it registers its own
// encoding.Codec over plain Go structs instead of depending on protoc-gen-go
// stubs, the same "optional codec" extension point grpc-go exposes for
// msgpack/cbor/json admin APIs elsewhere in the ecosystem.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }
