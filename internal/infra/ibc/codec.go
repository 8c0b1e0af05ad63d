package ibc

import "fmt"

// frame carries an already encoded protobuf message through gRPC.
type frame struct {
	payload []byte
}

// rawCodec passes frames through untouched. It reports itself as "proto" so
// the wire content type is the one every cosmos node expects.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("raw codec: unexpected message type %T", v)
	}
	return f.payload, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("raw codec: unexpected message type %T", v)
	}
	f.payload = append(f.payload[:0], data...)
	return nil
}

func (rawCodec) Name() string {
	return "proto"
}
