package chatpb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype every service in the fleet speaks.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec is a grpc encoding.Codec. The fleet is closed (no external
// protobuf consumers) and the broker topic is already JSON, so a single
// serialisation covers the socket, the topic and the stores.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("chatpb: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("chatpb: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }

// CallOption forces the json content-subtype on outgoing calls. Pass it as a
// default call option when dialing any fleet peer.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
