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

// PersistedState is the durable per-(project,instance) record that the
// orchestrator reads and mutates on every tick. See §3 for the invariants
// that every reachable value of this type must satisfy:
//
//   - ScalingOperationID == nil implies Method/PreviousSize/RequestedSize are
//     all nil (I3).
//   - ScalingOperationID != nil implies LastScalingTimestamp > 0 and
//     LastScalingCompleteTimestamp == nil.
//   - LastScalingCompleteTimestamp >= LastScalingTimestamp whenever both are
//     non-zero (I2).
type PersistedState struct {
	ScalingOperationID *string `json:"scaling_operation_id,omitempty" db:"scaling_operation_id"`

	// LastScalingTimestamp is in milliseconds since the epoch; 0 means "never".
	LastScalingTimestamp int64 `json:"last_scaling_timestamp" db:"last_scaling_timestamp"`
	// LastScalingCompleteTimestamp is in milliseconds since the epoch.
	LastScalingCompleteTimestamp *int64 `json:"last_scaling_complete_timestamp,omitempty" db:"last_scaling_complete_timestamp"`

	ScalingMethod       *string `json:"scaling_method,omitempty" db:"scaling_method"`
	ScalingPreviousSize *uint64 `json:"scaling_previous_size,omitempty" db:"scaling_previous_size"`
	ScalingRequestedSize *uint64 `json:"scaling_requested_size,omitempty" db:"scaling_requested_size"`
}

// IsOperationInFlight reports whether this state currently tracks a resize
// that has been started but not yet reconciled as finished.
func (s PersistedState) IsOperationInFlight() bool {
	return s.ScalingOperationID != nil
}

// ReferenceTimestamp is the timestamp that the cooldown evaluator measures
// elapsed time against: the completion time if known, else the start time.
func (s PersistedState) ReferenceTimestamp() int64 {
	if s.LastScalingCompleteTimestamp != nil {
		return *s.LastScalingCompleteTimestamp
	}
	return s.LastScalingTimestamp
}

// clearInFlight returns a copy of this state with all four in-flight fields
// cleared, as required whenever an operation finishes (successfully, by
// failure, or by fallback).
func (s PersistedState) clearInFlight() PersistedState {
	s.ScalingOperationID = nil
	s.ScalingMethod = nil
	s.ScalingPreviousSize = nil
	s.ScalingRequestedSize = nil
	return s
}

// Fulfillment is the service's advertised expected completion window for a
// resize, as reported alongside an in-progress operation.
type Fulfillment string

const (
	FulfillmentNormal      Fulfillment = "Normal"
	FulfillmentExtended    Fulfillment = "Extended"
	FulfillmentUnspecified Fulfillment = "Unspecified"
)

// OperationOutcomeKind is the closed enumeration of states that an
// OperationOutcome can be in.
type OperationOutcomeKind string

const (
	OutcomeInProgress OperationOutcomeKind = "in_progress"
	OutcomeSucceeded  OperationOutcomeKind = "succeeded"
	OutcomeFailed     OperationOutcomeKind = "failed"
	OutcomeUnknown    OperationOutcomeKind = "unknown"
)

// OperationOutcome is a classification of the status API response for an
// in-flight long-running operation. Tracker does not construct it: it works
// on OperationStatus and reports through ReconcileOutcome.
type OperationOutcome struct {
	Kind        OperationOutcomeKind
	Fulfillment Fulfillment // only meaningful when Kind == OutcomeInProgress

	// StartTime/EndTime are only meaningful when Kind == OutcomeSucceeded.
	StartTime *int64
	EndTime   *int64

	// Err is only meaningful when Kind == OutcomeFailed or OutcomeUnknown.
	Err error

	// BackfillSize carries a node/processing-unit count recovered from the
	// operation's metadata, used to backfill state.ScalingRequestedSize when
	// that field is missing (§4.E backfill rule). Nil when the metadata did
	// not carry a usable size.
	BackfillSize *uint64
}

// DenialReason is the closed enumeration recorded when a tick declines to
// resize (§4.G).
type DenialReason string

const (
	DenialMaxSize       DenialReason = "MAX_SIZE"
	DenialCurrentSize   DenialReason = "CURRENT_SIZE"
	DenialInProgress    DenialReason = "IN_PROGRESS"
	DenialWithinCooldown DenialReason = "WITHIN_COOLDOWN"
)
