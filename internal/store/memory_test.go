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
	"testing"

	"github.com/sapcc/dbautoscaler/internal/core"
)

func TestMemoryStoreGetDefaultsToZeroValue(t *testing.T) {
	registry := NewMemoryRegistry()
	s := registry.ForInstance("p1", "i1")

	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.IsOperationInFlight() {
		t.Error("expected a fresh instance to have no in-flight operation")
	}
}

func TestMemoryStoreUpdateThenGetRoundTrips(t *testing.T) {
	registry := NewMemoryRegistry()
	s := registry.ForInstance("p1", "i1")
	opID := "op-1"

	err := s.Update(context.Background(), core.PersistedState{ScalingOperationID: &opID, LastScalingTimestamp: 42})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !got.IsOperationInFlight() || *got.ScalingOperationID != opID || got.LastScalingTimestamp != 42 {
		t.Errorf("expected round-tripped state, got %+v", got)
	}
}

func TestMemoryStoreIsolatesDistinctInstances(t *testing.T) {
	registry := NewMemoryRegistry()
	a := registry.ForInstance("p1", "i1")
	b := registry.ForInstance("p1", "i2")

	opID := "op-1"
	if err := a.Update(context.Background(), core.PersistedState{ScalingOperationID: &opID}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := b.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.IsOperationInFlight() {
		t.Error("expected distinct instances to have independent state")
	}
}

func TestFactoryDispatchesOnStateBackend(t *testing.T) {
	memory := NewMemoryRegistry()
	factory := NewFactory(nil, memory)

	snap := core.InstanceSnapshot{ProjectID: "p1", InstanceID: "i1", StateBackend: BackendMemory}
	s, err := factory.New(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected a *MemoryStore, got %T", s)
	}
}

func TestFactoryRejectsUnknownBackend(t *testing.T) {
	factory := NewFactory(nil, NewMemoryRegistry())
	snap := core.InstanceSnapshot{ProjectID: "p1", InstanceID: "i1", StateBackend: "carrier-pigeon"}

	_, err := factory.New(context.Background(), snap)
	if err == nil {
		t.Error("expected an error for an unknown state backend")
	}
}

func TestFactoryErrorsWhenPostgresUnconfigured(t *testing.T) {
	factory := NewFactory(nil, NewMemoryRegistry())
	snap := core.InstanceSnapshot{ProjectID: "p1", InstanceID: "i1"} // empty StateBackend routes to postgres

	_, err := factory.New(context.Background(), snap)
	if err == nil {
		t.Error("expected an error when the postgres backend is selected but not configured")
	}
}
