package kv

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Store. Values are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) (Entry, error) {
	e := Entry{
		Value:     append([]byte(nil), value...),
		Digest:    Digest(value),
		UpdatedAt: m.now().UnixMilli(),
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	e.Value = append([]byte(nil), value...)
	return e, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) Backend() string { return "memory" }
