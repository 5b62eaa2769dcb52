/******************************************************************************
*
*  Copyright 2019 SAP SE
*
*  Licensed under the Apache License, Version 2.0 (the "License");
*  you may not use this file except in compliance with the License.
*  You may obtain a copy of the License at
*
*      http://www.apache.org/licenses/LICENSE-2.0
*
*  Unless required by applicable law or agreed to in writing, software
*  distributed under the License is distributed on an "AS IS" BASIS,
*  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
*  See the License for the specific language governing permissions and
*  limitations under the License.
*
******************************************************************************/

package store

import (
	"context"
	"sync"

	"github.com/sapcc/dbautoscaler/internal/core"
)

type memoryKey struct {
	ProjectID  string
	InstanceID string
}

// MemoryRegistry is a mutex-guarded map shared by every MemoryStore handed
// out for it; it is the backing data structure for the in-process ingress
// adapter (§6.c) and for internal/core's own unit tests.
type MemoryRegistry struct {
	mu     sync.Mutex
	states map[memoryKey]core.PersistedState
}

// NewMemoryRegistry constructs an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{states: make(map[memoryKey]core.PersistedState)}
}

// ForInstance returns a StateStore scoped to one (project, instance) pair,
// backed by this registry.
func (r *MemoryRegistry) ForInstance(projectID, instanceID string) *MemoryStore {
	return &MemoryStore{registry: r, key: memoryKey{ProjectID: projectID, InstanceID: instanceID}}
}

// MemoryStore is an in-memory core.StateStore, one per (project, instance)
// pair, backed by a shared MemoryRegistry.
type MemoryStore struct {
	registry *MemoryRegistry
	key      memoryKey
}

var _ core.StateStore = (*MemoryStore)(nil)

// Get implements core.StateStore.
func (s *MemoryStore) Get(ctx context.Context) (core.PersistedState, error) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	return s.registry.states[s.key], nil
}

// Update implements core.StateStore.
func (s *MemoryStore) Update(ctx context.Context, state core.PersistedState) error {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.states[s.key] = state
	return nil
}

// Close implements core.StateStore; a MemoryStore holds no resources to
// release.
func (s *MemoryStore) Close() error {
	return nil
}
