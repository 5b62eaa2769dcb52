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

package core

import "context"

// StateStore is the State Store Adapter (component C): read/write of a
// single per-instance state record. A StateStore is scoped to exactly one
// (project, instance) pair for the lifetime of one tick; the factory that
// constructs it is given the whole snapshot so that it can route to the
// right backend and location (§4.C).
type StateStore interface {
	// Get returns the persisted state for this instance, or the all-zero/null
	// record if none exists yet.
	Get(ctx context.Context) (PersistedState, error)
	// Update overwrites the stored record atomically. The core does not
	// assume cross-instance ordering; last-writer-wins per key is
	// acceptable (§4.C, §5).
	Update(ctx context.Context, state PersistedState) error
	// Close releases any resources (connections, sessions) acquired to serve
	// this tick. It must be safe to call exactly once per StateStore value.
	Close() error
}

// StateStoreFactory constructs a StateStore for one tick, choosing the
// backend and location named by the snapshot (§4.C).
type StateStoreFactory func(ctx context.Context, snapshot InstanceSnapshot) (StateStore, error)
