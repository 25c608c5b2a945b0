package main

import "github.com/bytedance/sonic"

var fastJSON = sonic.ConfigDefault

// fastJSONMarshal encodes v as JSON using the Sonic encoder, which is
// optimized for throughput and lower allocations compared to encoding/json.
// Callers should prefer this on hot paths (stratum request/response framing).
func fastJSONMarshal(v any) ([]byte, error) {
	return fastJSON.Marshal(v)
}

// fastJSONUnmarshal decodes JSON data into v using Sonic. It is a drop-in
// replacement for encoding/json.Unmarshal for typical Go structs.
func fastJSONUnmarshal(data []byte, v any) error {
	return fastJSON.Unmarshal(data, v)
}
