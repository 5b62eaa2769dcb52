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

// Package directingress is ingress adapter (c) from §6: a direct in-process
// call, with no serialization step at all. This is the adapter used by
// internal/core's own callers-of-callers (the "test-asset-type" style debug
// shell in cmd/autoscaler, and any embedder that already has an
// InstanceSnapshot in hand).
package directingress

import (
	"context"
	"time"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// Adapter runs a tick directly against an already-constructed snapshot,
// without any message bus or HTTP framing.
type Adapter struct {
	Orchestrator *core.Orchestrator
	StoreFactory core.StateStoreFactory

	// TimeNow is a dependency-injection slot for tests.
	TimeNow func() time.Time
}

// NewAdapter constructs an Adapter.
func NewAdapter(orchestrator *core.Orchestrator, storeFactory core.StateStoreFactory) *Adapter {
	return &Adapter{Orchestrator: orchestrator, StoreFactory: storeFactory, TimeNow: time.Now}
}

// Tick runs one tick for snapshot, acquiring and releasing the state store
// handle for the duration of the call (§5 scoped-resources note).
func (a *Adapter) Tick(ctx context.Context, snapshot core.InstanceSnapshot) error {
	store, err := a.StoreFactory(ctx, snapshot)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	now := a.TimeNow().UnixMilli()
	return a.Orchestrator.Tick(ctx, store, snapshot, now)
}
