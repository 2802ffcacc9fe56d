// Package store is the key-value contract the listing collection persists through.
// Values are opaque JSON; interpreting them (and migrating old shapes) is the caller's job.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Key string

const (
	KeyListings Key = "listings"
	KeySettings Key = "settings"
)

// Values maps keys to raw JSON. A key missing from a Get result has never been set.
type Values map[Key]json.RawMessage

// Change describes one externally observable write. Old is nil when the key was unset
// or the backend cannot report it.
type Change struct {
	Key Key             `json:"key"`
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new"`
}

type ChangeListener func(Change)

// Store is last-write-wins per key. A single Set is the only unit of atomicity.
type Store interface {
	Get(ctx context.Context, keys ...Key) (Values, error)
	Set(ctx context.Context, values Values) error
	// OnChange subscribes listener to every write, including this process's own.
	// The returned func unsubscribes; it is safe to call more than once.
	OnChange(ctx context.Context, listener ChangeListener) (func(), error)
	Close() error
}

var ErrUnknownDriver = errors.New("unknown store driver")

// Marshal is a helper for building Values from Go values.
func Marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal store value: %w", err)
	}
	return b, nil
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
