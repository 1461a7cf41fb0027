// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package ordered holds helpers over insertion-ordered maps. Replacing the
// value of an existing key keeps its position.
package ordered

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered map. Not safe for concurrent use.
type Map[K comparable, V any] = orderedmap.OrderedMap[K, V]

// New creates an empty map.
func New[K comparable, V any]() *Map[K, V] {
	return orderedmap.New[K, V]()
}

// Has reports whether key is present.
func Has[K comparable, V any](m *Map[K, V], key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns all keys in order.
func Keys[K comparable, V any](m *Map[K, V]) []K {
	keys := make([]K, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Values returns all values in key order.
func Values[K comparable, V any](m *Map[K, V]) []V {
	values := make([]V, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// Rename moves the value under from to to, keeping from's position. It
// reports false when from is missing or to is already taken.
func Rename[K comparable, V any](m *Map[K, V], from, to K) bool {
	v, ok := m.Get(from)
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if Has(m, to) {
		return false
	}
	m.Set(to, v)
	if err := m.MoveAfter(to, from); err != nil {
		m.Delete(to)
		return false
	}
	m.Delete(from)
	return true
}
