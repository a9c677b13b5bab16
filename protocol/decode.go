package protocol

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodePayload maps a loosely typed JSON payload onto T using its json tags.
// Input is weakly typed: the server sends ids either as numbers or as strings ("anon").
func decodePayload[T any](data any) (T, error) {
	var out T
	if data == nil {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err = dec.Decode(data); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

func asMap(data any) map[string]any {
	m, _ := data.(map[string]any)
	return m
}
