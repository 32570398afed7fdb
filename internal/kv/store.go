// Package kv is the portal's storage port: a flat string key-value store
// holding JSON documents, with interchangeable backends.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrCorrupt  = errors.New("stored value is not valid json")
)

// Store is the minimal get/set/remove contract every backend implements.
// Writes replace the whole value; there is no compare-and-swap.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Scanner is implemented by backends that can enumerate their keys.
type Scanner interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetJSON decodes the value stored at key into out. It returns ErrNotFound
// when the key is absent and an error wrapping ErrCorrupt when the stored
// text does not decode.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
