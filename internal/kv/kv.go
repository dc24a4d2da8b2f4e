// Package kv is the local persistence backend: a flat string key-value space
// with independent get, set and remove per key.
package kv

import (
	"context"
	"sync"
)

type Backend interface {
	// Get reports ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Keys names the four entries the application persists under one prefix.
type Keys struct {
	User     string
	Incoming string
	Outgoing string
	Archived string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "orgmail"
	}
	return Keys{
		User:     prefix + ":user",
		Incoming: prefix + ":incoming",
		Outgoing: prefix + ":outgoing",
		Archived: prefix + ":archived",
	}
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	value, ok := m.entries[key]
	m.mu.RUnlock()
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
