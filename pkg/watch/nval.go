// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watch

import (
	"maps"

	"github.com/Thermoquad/metasim/pkg/metawatch"
)

// NvalStore holds the current value of every NVAL register that has one
type NvalStore struct {
	values map[uint16]int
}

// NewNvalStore creates a store filled with the catalog defaults
func NewNvalStore() *NvalStore {
	s := &NvalStore{}
	s.Reset()
	return s
}

// Reset restores the catalog defaults and forgets everything else
func (s *NvalStore) Reset() {
	s.values = make(map[uint16]int)
	for _, r := range metawatch.NvalRegisters() {
		if r.HasDefault {
			s.values[r.ID] = r.Default
		}
	}
}

// Get returns the value of id
func (s *NvalStore) Get(id uint16) (int, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Set stores v for id
func (s *NvalStore) Set(id uint16, v int) {
	s.values[id] = v
}

// Values returns a copy of the store
func (s *NvalStore) Values() map[uint16]int {
	return maps.Clone(s.values)
}
