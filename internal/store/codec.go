package store

import (
	"fmt"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Encode serializes v into a record value
func Encode(v interface{}) (string, error) {
	s, err := api.MarshalToString(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return s, nil
}

// Decode deserializes a record value into v
func Decode(value string, v interface{}) error {
	if err := api.UnmarshalFromString(value, v); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
