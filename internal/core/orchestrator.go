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
	"fmt"

	"github.com/sapcc/go-bits/logg"
)

// Orchestrator is the Scaling Orchestrator (component G): it runs one tick
// for one instance snapshot, driving components A through I. A zero-value
// Orchestrator is not usable; construct one with NewOrchestrator. Once
// constructed, an Orchestrator is stateless and safe for concurrent use
// across distinct (project, instance) snapshots (§5).
type Orchestrator struct {
	Registry  *Registry
	Cooldown  CooldownEvaluator
	Tracker   OperationTracker
	Driver    ResizeDriver
	Emitter   EventEmitter
	Counters  Counters
}

// NewOrchestrator constructs an Orchestrator from its component
// dependencies. Emitter and Counters default to no-ops when nil, so that
// callers which do not care about downstream events or metrics (e.g. unit
// tests of the sizing/cooldown logic alone) can omit them.
func NewOrchestrator(registry *Registry, tracker OperationTracker, driver ResizeDriver, emitter EventEmitter, counters Counters) *Orchestrator {
	if emitter == nil {
		emitter = NullEmitter{}
	}
	if counters == nil {
		counters = NopCounters{}
	}
	return &Orchestrator{
		Registry: registry,
		Cooldown: NewCooldownEvaluator(),
		Tracker:  tracker,
		Driver:   driver,
		Emitter:  emitter,
		Counters: counters,
	}
}

// Tick runs the full per-tick algorithm of §4.G for one instance snapshot:
// validate, reconcile any in-flight operation (E), compute the suggested
// size (A+B), and either deny or submit a resize (D, persisting via the
// store C and emitting via H). The state store handle is acquired by the
// caller and is not closed by Tick (§5 scoped-resources note: callers close
// it on every exit path of their own tick loop).
func (o *Orchestrator) Tick(ctx context.Context, store StateStore, snapshot InstanceSnapshot, now int64) error {
	if err := snapshot.Validate(); err != nil {
		o.Counters.RecordRequestOutcome(false)
		return fmt.Errorf("invalid snapshot for instance %s in project %s: %w", snapshot.InstanceID, snapshot.ProjectID, err)
	}

	state, err := store.Get(ctx)
	if err != nil {
		o.Counters.RecordRequestOutcome(false)
		return fmt.Errorf("could not load state for instance %s in project %s: %w", snapshot.InstanceID, snapshot.ProjectID, err)
	}

	state, reconcileOutcome, err := o.Tracker.Reconcile(ctx, store, state, snapshot, now, o.Counters)
	if err != nil {
		o.Counters.RecordRequestOutcome(false)
		return fmt.Errorf("could not reconcile operation for instance %s in project %s: %w", snapshot.InstanceID, snapshot.ProjectID, err)
	}

	suggestedSize, resolvedMethod, err := o.Registry.Suggest(snapshot)
	if err != nil {
		o.Counters.RecordRequestOutcome(false)
		return fmt.Errorf("could not compute suggested size for instance %s in project %s: %w", snapshot.InstanceID, snapshot.ProjectID, err)
	}
	snapshot.ScalingMethod = resolvedMethod

	if suggestedSize == snapshot.CurrentSize {
		// I4 (no-op preservation): no state mutation, no resize call, no
		// event emission beyond what reconciliation above already did.
		if snapshot.CurrentSize == snapshot.MaxSize && snapshot.MaxSize != 0 {
			o.Counters.RecordScalingDenied(DenialMaxSize)
		} else {
			o.Counters.RecordScalingDenied(DenialCurrentSize)
		}
		o.Counters.RecordRequestOutcome(true)
		return nil
	}

	if state.IsOperationInFlight() {
		if reconcileOutcome.StillInProgress && reconcileOutcome.Fulfillment == FulfillmentExtended {
			if state.ScalingRequestedSize == nil || *state.ScalingRequestedSize != suggestedSize {
				logg.Info("instance %s in project %s: in-flight operation has Extended fulfillment and the newly computed target %d diverges from the in-flight target; waiting (see open question on cancel-and-resubmit)",
					snapshot.InstanceID, snapshot.ProjectID, suggestedSize)
			}
		}
		o.Counters.RecordScalingDenied(DenialInProgress)
		o.Counters.RecordRequestOutcome(true)
		return nil
	}

	if !o.Cooldown.Admit(snapshot, suggestedSize, state, now) {
		o.Counters.RecordScalingDenied(DenialWithinCooldown)
		o.Counters.RecordRequestOutcome(true)
		return nil
	}

	operationID, err := o.Driver.Start(ctx, snapshot, suggestedSize)
	if err != nil {
		logg.Info("could not submit resize of instance %s in project %s to %d: %s",
			snapshot.InstanceID, snapshot.ProjectID, suggestedSize, err.Error())
		CaptureTickError(snapshot, ResizeSubmissionError{InstanceID: snapshot.InstanceID, Err: err})
		o.Counters.RecordScalingOutcome(false)
		o.Emitter.Emit(ctx, EventScalingFailure, snapshot.DownstreamTopic, newDownstreamEvent(snapshot, suggestedSize))
		o.Counters.RecordRequestOutcome(true)
		return nil
	}

	previousSize := snapshot.CurrentSize
	newState := PersistedState{
		ScalingOperationID:   &operationID,
		LastScalingTimestamp: now,
		ScalingMethod:        &resolvedMethod,
		ScalingPreviousSize:  &previousSize,
		ScalingRequestedSize: &suggestedSize,
	}
	if err := store.Update(ctx, newState); err != nil {
		o.Counters.RecordRequestOutcome(false)
		return fmt.Errorf("could not persist state for instance %s in project %s: %w", snapshot.InstanceID, snapshot.ProjectID, err)
	}

	o.Emitter.Emit(ctx, EventScaling, snapshot.DownstreamTopic, newDownstreamEvent(snapshot, suggestedSize))
	o.Counters.RecordRequestOutcome(true)
	return nil
}

func newDownstreamEvent(snapshot InstanceSnapshot, suggestedSize uint64) DownstreamEvent {
	current := snapshot.CurrentSize
	suggested := suggestedSize
	units := snapshot.Units
	return DownstreamEvent{
		ProjectID:     snapshot.ProjectID,
		InstanceID:    snapshot.InstanceID,
		CurrentSize:   &current,
		SuggestedSize: &suggested,
		Units:         &units,
		Metrics:       snapshot.Metrics,
	}
}
