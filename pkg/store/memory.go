// Package store provides option.Store backends: an in-memory map, a SQLite
// table, and a YAML file that reloads itself when edited. Env supplies
// constant overrides read from the process environment.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// Memory keeps values in a map. The zero value is not usable; use NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]mask.Value
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]mask.Value)}
}

// Seed stores values without change detection, for fixtures.
func (m *Memory) Seed(values map[string]mask.Value) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, value := range values {
		m.values[name] = value.Clone()
	}
	return m
}

func (m *Memory) Get(_ context.Context, name string) (mask.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	if !ok {
		return mask.Null(), false, nil
	}
	return v.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, name string, v mask.Value) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.values[name]; ok && current.Equal(v) {
		return false, nil
	}
	m.values[name] = v.Clone()
	return true, nil
}

// Names lists stored names in sorted order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
