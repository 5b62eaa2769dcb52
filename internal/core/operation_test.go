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

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct {
	status OperationStatus
	err    error
}

func (f stubFetcher) FetchStatus(ctx context.Context, operationID string) (OperationStatus, error) {
	return f.status, f.err
}

type stubStore struct {
	get     PersistedState
	updated []PersistedState
}

func (s *stubStore) Get(ctx context.Context) (PersistedState, error) { return s.get, nil }
func (s *stubStore) Update(ctx context.Context, state PersistedState) error {
	s.updated = append(s.updated, state)
	return nil
}
func (s *stubStore) Close() error { return nil }

func opID(id string) *string { return &id }
func u64(v uint64) *uint64   { return &v }
func i64(v int64) *int64     { return &v }

func TestTrackerReconcileNoOpWhenNotInFlight(t *testing.T) {
	tr := NewTracker(stubFetcher{})
	store := &stubStore{}
	state, outcome, err := tr.Reconcile(context.Background(), store, PersistedState{}, baseSnapshot(), 1000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.IsOperationInFlight() || outcome.StillInProgress {
		t.Error("expected a no-op passthrough for a state with no in-flight operation")
	}
	if len(store.updated) != 0 {
		t.Error("expected no persistence when there is nothing to reconcile")
	}
}

func TestTrackerReconcileStillInProgress(t *testing.T) {
	tr := NewTracker(stubFetcher{status: OperationStatus{Done: false, Fulfillment: FulfillmentExtended}})
	store := &stubStore{get: PersistedState{ScalingOperationID: opID("op-1"), LastScalingTimestamp: 500}}

	state, outcome, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 1000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !outcome.StillInProgress || outcome.Fulfillment != FulfillmentExtended {
		t.Errorf("expected still-in-progress with Extended fulfillment, got %+v", outcome)
	}
	if !state.IsOperationInFlight() {
		t.Error("expected the operation to remain in flight")
	}
	if len(store.updated) != 1 {
		t.Errorf("expected exactly one persist call, got %d", len(store.updated))
	}
}

func TestTrackerReconcileDoneSuccessWithEndTime(t *testing.T) {
	start := int64(1000)
	end := int64(5000)
	tr := NewTracker(stubFetcher{status: OperationStatus{Done: true, StartTime: &start, EndTime: &end, NodeCount: u64(15)}})
	store := &stubStore{get: PersistedState{
		ScalingOperationID:  opID("op-1"),
		LastScalingTimestamp: start,
		ScalingMethod:       opID("stepwise"),
		ScalingPreviousSize: u64(10),
	}}

	state, outcome, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 6000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if outcome.StillInProgress {
		t.Error("expected the operation to be reported as finished")
	}
	if state.IsOperationInFlight() {
		t.Error("expected in-flight fields to be cleared on success")
	}
	if state.LastScalingCompleteTimestamp == nil || *state.LastScalingCompleteTimestamp != end {
		t.Errorf("expected completion timestamp %d, got %v", end, state.LastScalingCompleteTimestamp)
	}
}

func TestTrackerReconcileDoneSuccessAbsentEndTimeFallsBackToStart(t *testing.T) {
	tr := NewTracker(stubFetcher{status: OperationStatus{Done: true, NodeCount: u64(15)}})
	store := &stubStore{get: PersistedState{
		ScalingOperationID:  opID("op-1"),
		LastScalingTimestamp: 3000,
	}}

	state, _, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 6000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.LastScalingCompleteTimestamp == nil || *state.LastScalingCompleteTimestamp != 3000 {
		t.Errorf("expected fallback to start timestamp 3000, got %v", state.LastScalingCompleteTimestamp)
	}
}

func TestTrackerReconcileDoneFailureClearsInFlight(t *testing.T) {
	tr := NewTracker(stubFetcher{status: OperationStatus{Done: true, Err: errors.New("boom")}})
	store := &stubStore{get: PersistedState{ScalingOperationID: opID("op-1"), LastScalingTimestamp: 1000}}

	state, _, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 2000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.IsOperationInFlight() {
		t.Error("expected in-flight fields to be cleared on failure")
	}
	if state.LastScalingTimestamp != 0 {
		t.Errorf("expected LastScalingTimestamp reset to 0 on failure, got %d", state.LastScalingTimestamp)
	}
}

func TestTrackerReconcileStatusAPIErrorFallsBackToSuccess(t *testing.T) {
	tr := NewTracker(stubFetcher{err: errors.New("network unreachable")})
	store := &stubStore{get: PersistedState{ScalingOperationID: opID("op-1"), LastScalingTimestamp: 1000}}

	state, outcome, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 4000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.IsOperationInFlight() || outcome.StillInProgress {
		t.Error("expected a status-API error to be treated as success-by-fallback")
	}
	if state.LastScalingCompleteTimestamp == nil || *state.LastScalingCompleteTimestamp != 1000 {
		t.Errorf("expected fallback completion at LastScalingTimestamp, got %v", state.LastScalingCompleteTimestamp)
	}
}

func TestTrackerReconcileMalformedMetadataFallsBackToSuccess(t *testing.T) {
	tr := NewTracker(stubFetcher{err: MalformedOperationMetadataError{OperationID: "op-1", Reason: "bad end time"}})
	store := &stubStore{get: PersistedState{ScalingOperationID: opID("op-1"), LastScalingTimestamp: 1000}}

	state, _, err := tr.Reconcile(context.Background(), store, store.get, baseSnapshot(), 4000, NopCounters{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if state.IsOperationInFlight() {
		t.Error("expected malformed metadata to be treated identically to a transport error: success-by-fallback")
	}
}

func TestTrackerBackfillRequestedSizeFromMetadata(t *testing.T) {
	tr := NewTracker(stubFetcher{})
	state := PersistedState{}
	status := OperationStatus{NodeCount: u64(25)}

	filled := tr.backfillRequestedSize(state, baseSnapshot(), status)
	if filled.ScalingRequestedSize == nil || *filled.ScalingRequestedSize != 25 {
		t.Errorf("expected backfill from NodeCount, got %v", filled.ScalingRequestedSize)
	}
}

func TestTrackerBackfillRequestedSizeFallsBackToCurrentSize(t *testing.T) {
	tr := NewTracker(stubFetcher{})
	state := PersistedState{}
	snap := baseSnapshot()

	filled := tr.backfillRequestedSize(state, snap, OperationStatus{})
	if filled.ScalingRequestedSize == nil || *filled.ScalingRequestedSize != snap.CurrentSize {
		t.Errorf("expected backfill fallback to CurrentSize, got %v", filled.ScalingRequestedSize)
	}
}

func TestTrackerBackfillRequestedSizeLeavesExistingValueAlone(t *testing.T) {
	tr := NewTracker(stubFetcher{})
	state := PersistedState{ScalingRequestedSize: u64(99)}

	filled := tr.backfillRequestedSize(state, baseSnapshot(), OperationStatus{NodeCount: u64(25)})
	if *filled.ScalingRequestedSize != 99 {
		t.Errorf("expected existing requested size to be preserved, got %d", *filled.ScalingRequestedSize)
	}
}
