package gridv1

import "encoding/json"

// JSONCodec implements connect.Codec with encoding/json.
type JSONCodec struct{}

// Name returns "json", replacing Connect's protobuf JSON codec.
func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
