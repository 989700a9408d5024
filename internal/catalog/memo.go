// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"qbadmin/internal/models"
)

// Memo caches the flattened tree of the most recent payloads, keyed by the
// SHA-256 of the raw bytes. It is safe for concurrent use.
type Memo struct {
	mu      sync.Mutex
	max     int
	order   [][sha256.Size]byte
	entries map[[sha256.Size]byte]memoEntry
}

type memoEntry struct {
	mains   []models.MainCategory
	records []Record
}

// NewMemo creates a memo holding at most max payloads.
func NewMemo(max int) *Memo {
	if max < 1 {
		max = 1
	}
	return &Memo{max: max, entries: make(map[[sha256.Size]byte]memoEntry)}
}

// Tree decodes raw as a category tree and flattens it. Identical payloads
// return the cached result without decoding again. Callers must not modify
// the returned slices.
func (m *Memo) Tree(raw []byte) ([]models.MainCategory, []Record, error) {
	key := sha256.Sum256(raw)

	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return e.mains, e.records, nil
	}
	m.mu.Unlock()

	var mains []models.MainCategory
	if err := json.Unmarshal(raw, &mains); err != nil {
		return nil, nil, fmt.Errorf("decoding category tree: %w", err)
	}
	records := Flatten(mains)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		if len(m.order) >= m.max {
			delete(m.entries, m.order[0])
			m.order = m.order[1:]
		}
		m.order = append(m.order, key)
		m.entries[key] = memoEntry{mains: mains, records: records}
	}
	return mains, records, nil
}

// Len returns the number of cached payloads.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
