package persistence

import (
	"github.com/bytedance/sonic"

	"github.com/petrijr/pipevine/pkg/api"
)

// State documents are stored as JSON so that schema-less records,
// including reserved transient keys, survive read-modify-write cycles.
// ConfigStd keeps the output byte-compatible with encoding/json.
var codec = sonic.ConfigStd

// EncodeState serializes a state document. A nil document encodes as an
// empty one.
func EncodeState(st api.State) ([]byte, error) {
	if st == nil {
		st = api.State{}
	}
	return codec.Marshal(st)
}

// DecodeState deserializes a state document. Empty input yields an empty
// document rather than an error.
func DecodeState(data []byte) (api.State, error) {
	st := api.State{}
	if len(data) == 0 {
		return st, nil
	}
	if err := codec.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return st, nil
}
