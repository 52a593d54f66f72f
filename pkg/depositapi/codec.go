package depositapi

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// jsonCodec replaces connect's protobuf-only "json" codec so the service can
// exchange plain structs.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

// Codec returns the codec both sides of the service must use.
func Codec() connect.Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("depositapi: marshal %T: %w", msg, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("depositapi: unmarshal %T: %w", msg, err)
	}
	return nil
}
