package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandClearCache is the only invalidation command kind acted upon
const CommandClearCache = "clear-cache"

var (
	// ErrInvalidCommand is returned for payloads that are not valid invalidation commands
	ErrInvalidCommand = errors.New("invalid invalidation command")
	// ErrUnknownCommand is returned for well-formed commands of an unrecognized type
	ErrUnknownCommand = errors.New("unknown invalidation command")
)

// InvalidationCommand is the bus payload that drives cache eviction
type InvalidationCommand struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// NewClearCacheCommand builds a clear-cache command for keys
func NewClearCacheCommand(keys ...string) InvalidationCommand {
	return InvalidationCommand{Type: CommandClearCache, Keys: keys}
}

// DecodeInvalidationCommand parses and validates a raw bus message
func DecodeInvalidationCommand(raw []byte) (*InvalidationCommand, error) {
	var probe struct {
		Type string           `json:"type"`
		Keys *json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	if probe.Type != CommandClearCache {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, probe.Type)
	}

	if probe.Keys == nil {
		return nil, fmt.Errorf("%w: missing keys", ErrInvalidCommand)
	}

	var keys []string
	if err := json.Unmarshal(*probe.Keys, &keys); err != nil {
		return nil, fmt.Errorf("%w: keys must be a list of strings: %v", ErrInvalidCommand, err)
	}

	return &InvalidationCommand{Type: probe.Type, Keys: keys}, nil
}
