package app

import (
	"fmt"
)

type Meta map[string]any

var MetaRegistry = Meta{}

type ErrMetaAlreadyRegistered struct {
	Key string
}

func (e ErrMetaAlreadyRegistered) Error() string {
	return fmt.Sprintf("meta key already registered: %q", e.Key)
}

type ErrMetaNotRegistered struct {
	Key string
}

func (e ErrMetaNotRegistered) Error() string {
	return fmt.Sprintf("meta key not registered: %q", e.Key)
}

// Register stores a key/value pair in the registry.
// Returns an error if the key already registered.
func (m Meta) Register(key string, value any) error {
	if _, ok := m[key]; ok {
		return ErrMetaAlreadyRegistered{Key: key}
	}
	m[key] = value
	return nil
}

// Set assigns a new value for key in the registry.
// Returns an error if the key is not registered.
func (m Meta) Set(key string, value any) error {
	if _, ok := m[key]; !ok {
		return ErrMetaNotRegistered{Key: key}
	}
	m[key] = value
	return nil
}

// Lookup returns the value associated with the key.
// Returns an error if the key is not registered.
func (m Meta) Lookup(key string) (any, error) {
	v, ok := m[key]
	if !ok {
		return v, ErrMetaNotRegistered{Key: key}
	}
	return v, nil
}

// MetaRegister stores a key/value pair in MetaRegistry, replacing a
// previously registered value.
func MetaRegister(key string, value any) {
	if err := MetaRegistry.Register(key, value); err != nil {
		_ = MetaRegistry.Set(key, value)
	}
}

// MetaLookup returns the value associated with the key in MetaRegistry.
func MetaLookup(key string) (any, error) {
	return MetaRegistry.Lookup(key)
}
