// Package rpc defines the daemon's gRPC services: the wire messages, a JSON
// codec that carries them and the hand-written service descriptors and
// clients.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients must request.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption selects the JSON codec for a call. Dial with
// grpc.WithDefaultCallOptions(rpc.CallOption()) to apply it everywhere.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
