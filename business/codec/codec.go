// Package codec handles serialization of task arguments and results into the
// blobs the stores persist.
package codec

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Marshal serializes a value into the blob format used by the stores.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a stored blob into v. Decoding uses sonic since the
// engine decodes on every dispatch while encoding happens once per
// registration.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
