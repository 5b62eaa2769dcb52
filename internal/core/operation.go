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

	"github.com/sapcc/go-bits/errext"
	"github.com/sapcc/go-bits/logg"
)

// OperationStatus is what a StatusFetcher reports back for one operation id
// (§6, operation-status API).
type OperationStatus struct {
	Done bool
	// Err is non-nil when Done is true and the operation failed.
	Err error

	StartTime *int64
	EndTime   *int64

	// Fulfillment is only meaningful when Done is false.
	Fulfillment Fulfillment

	// NodeCount/ProcessingUnits carry whichever size field the operation's
	// metadata reported, used for the backfill rule in §4.E. At most one is
	// set, matching snapshot.Units.
	NodeCount       *uint64
	ProcessingUnits *uint64
}

// StatusFetcher polls the operation-status API for a single operation id.
// A non-nil error (transport failure or malformed metadata) is treated by
// the tracker as success-by-fallback (§4.E, §7 item 4).
type StatusFetcher interface {
	FetchStatus(ctx context.Context, operationID string) (OperationStatus, error)
}

// ReconcileOutcome reports whether the in-flight operation (if any) is still
// running, and if so, under which fulfillment window.
type ReconcileOutcome struct {
	StillInProgress bool
	Fulfillment     Fulfillment
}

// OperationTracker is the Operation Tracker (component E): it reconciles a
// persisted state's in-flight operation (if any) against the operation's
// current status, mutating and persisting the state before returning in
// every branch where an operation is in flight (§4.E). A state with no
// in-flight operation is returned unchanged and is not written.
type OperationTracker interface {
	Reconcile(ctx context.Context, store StateStore, state PersistedState, snapshot InstanceSnapshot, now int64, counters Counters) (PersistedState, ReconcileOutcome, error)
}

// Tracker is the standard OperationTracker, backed by a StatusFetcher (in
// production, the same client that implements ResizeDriver).
type Tracker struct {
	Fetcher StatusFetcher
}

// NewTracker constructs a Tracker.
func NewTracker(fetcher StatusFetcher) *Tracker {
	return &Tracker{Fetcher: fetcher}
}

// Reconcile implements OperationTracker.
func (t *Tracker) Reconcile(ctx context.Context, store StateStore, state PersistedState, snapshot InstanceSnapshot, now int64, counters Counters) (PersistedState, ReconcileOutcome, error) {
	if !state.IsOperationInFlight() {
		return state, ReconcileOutcome{}, nil
	}
	operationID := *state.ScalingOperationID

	status, err := t.Fetcher.FetchStatus(ctx, operationID)
	if err != nil {
		// Status API error: treat as success-by-fallback regardless of
		// whether the failure was transport-level or malformed metadata
		// (errext.IsOfType only changes the log message, not the policy).
		if errext.IsOfType[MalformedOperationMetadataError](err) {
			logg.Info("operation %s for instance %s in project %s has malformed status metadata, treating as completed: %s",
				operationID, snapshot.InstanceID, snapshot.ProjectID, err.Error())
			CaptureTickError(snapshot, err)
		} else {
			logg.Info("could not fetch status of operation %s for instance %s in project %s, treating as completed: %s",
				operationID, snapshot.InstanceID, snapshot.ProjectID, err.Error())
		}
		return t.finishByFallback(ctx, store, state, snapshot, now, counters)
	}

	state = t.backfillRequestedSize(state, snapshot, status)

	if !status.Done {
		fulfillment := status.Fulfillment
		if fulfillment == "" {
			fulfillment = FulfillmentUnspecified
		}
		if err := store.Update(ctx, state); err != nil {
			return state, ReconcileOutcome{}, err
		}
		return state, ReconcileOutcome{StillInProgress: true, Fulfillment: fulfillment}, nil
	}

	if status.Err == nil {
		return t.finishSuccess(ctx, store, state, snapshot, now, status, counters)
	}
	return t.finishFailure(ctx, store, state, snapshot, status.Err, counters)
}

// backfillRequestedSize applies the §4.E backfill rule: if the state does
// not already carry a requested size, populate it from the operation's
// metadata, falling back to the snapshot's current size.
func (t *Tracker) backfillRequestedSize(state PersistedState, snapshot InstanceSnapshot, status OperationStatus) PersistedState {
	if state.ScalingRequestedSize != nil {
		return state
	}
	switch {
	case status.NodeCount != nil:
		state.ScalingRequestedSize = status.NodeCount
	case status.ProcessingUnits != nil:
		state.ScalingRequestedSize = status.ProcessingUnits
	default:
		fallback := snapshot.CurrentSize
		state.ScalingRequestedSize = &fallback
	}
	return state
}

func (t *Tracker) finishSuccess(ctx context.Context, store StateStore, state PersistedState, snapshot InstanceSnapshot, now int64, status OperationStatus, counters Counters) (PersistedState, ReconcileOutcome, error) {
	endTime := status.EndTime
	if endTime == nil {
		logg.Info("operation %s for instance %s in project %s has no end time, falling back to start time",
			*state.ScalingOperationID, snapshot.InstanceID, snapshot.ProjectID)
		fallback := state.LastScalingTimestamp
		endTime = &fallback
	}

	method := ""
	if state.ScalingMethod != nil {
		method = *state.ScalingMethod
	}
	var requested uint64
	if state.ScalingRequestedSize != nil {
		requested = *state.ScalingRequestedSize
	}
	counters.RecordScalingOutcome(true)
	counters.RecordScalingDuration(method, state.ScalingPreviousSize, &requested, durationMillis(state.LastScalingTimestamp, *endTime))

	state.LastScalingCompleteTimestamp = endTime
	state = state.clearInFlight()
	if err := store.Update(ctx, state); err != nil {
		return state, ReconcileOutcome{}, err
	}
	return state, ReconcileOutcome{}, nil
}

func (t *Tracker) finishFailure(ctx context.Context, store StateStore, state PersistedState, snapshot InstanceSnapshot, cause error, counters Counters) (PersistedState, ReconcileOutcome, error) {
	logg.Info("operation %s for instance %s in project %s failed: %s",
		*state.ScalingOperationID, snapshot.InstanceID, snapshot.ProjectID, cause.Error())
	counters.RecordScalingOutcome(false)

	state.LastScalingTimestamp = 0
	state.LastScalingCompleteTimestamp = nil
	state = state.clearInFlight()
	if err := store.Update(ctx, state); err != nil {
		return state, ReconcileOutcome{}, err
	}
	return state, ReconcileOutcome{}, nil
}

// finishByFallback implements the §4.E/§7 item 4 optimistic fallback: the
// autoscaler never wedges on its own inability to read operation status.
func (t *Tracker) finishByFallback(ctx context.Context, store StateStore, state PersistedState, snapshot InstanceSnapshot, now int64, counters Counters) (PersistedState, ReconcileOutcome, error) {
	completeTime := state.LastScalingTimestamp

	method := ""
	if state.ScalingMethod != nil {
		method = *state.ScalingMethod
	}
	var requested uint64
	if state.ScalingRequestedSize != nil {
		requested = *state.ScalingRequestedSize
	}
	counters.RecordScalingOutcome(true)
	counters.RecordScalingDuration(method, state.ScalingPreviousSize, &requested, durationMillis(state.LastScalingTimestamp, completeTime))

	state.LastScalingCompleteTimestamp = &completeTime
	state = state.clearInFlight()
	if err := store.Update(ctx, state); err != nil {
		return state, ReconcileOutcome{}, err
	}
	return state, ReconcileOutcome{}, nil
}

func durationMillis(start, end int64) int64 {
	d := end - start
	if d < 0 {
		return 0
	}
	return d
}
