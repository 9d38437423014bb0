package httpcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an in-process LRU tier bounded by entry count.
type Memory struct {
	entries *lru.Cache[string, []byte]
}

// NewMemory creates a memory tier that holds at most capacity responses.
func NewMemory(capacity int) (*Memory, error) {
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &Memory{entries: c}, nil
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	body, ok := m.entries.Get(key)
	return body, ok, nil
}

func (m *Memory) Put(key string, body []byte) error {
	m.entries.Add(key, body)
	return nil
}

// Len returns the number of cached responses.
func (m *Memory) Len() int {
	return m.entries.Len()
}
