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

// Counters is the Counters Facade (component I): the orchestrator records
// outcomes through this narrow interface so that internal/metrics can be the
// only package that knows about Prometheus types (§4.I).
type Counters interface {
	// RecordRequestOutcome counts one ingested snapshot as successfully or
	// unsuccessfully processed (§7 items 1, 2, 5).
	RecordRequestOutcome(success bool)
	// RecordScalingOutcome counts one resize operation as having finished
	// successfully or unsuccessfully (§4.E, §4.G).
	RecordScalingOutcome(success bool)
	// RecordScalingDenied counts a tick that declined to resize, by reason.
	RecordScalingDenied(reason DenialReason)
	// RecordScalingDuration observes the wall-clock duration (in
	// milliseconds) of a completed resize, labelled by method and by the
	// previous/requested sizes (free-form string labels, §4.I).
	RecordScalingDuration(method string, previousSize, requestedSize *uint64, durationMillis int64)
	// RecordDownstreamPublishOutcome counts one Downstream Emitter publish
	// attempt as having succeeded or failed. Wired to the Downstream
	// Emitter's OnPublished/OnFailed callbacks (§4.H).
	RecordDownstreamPublishOutcome(success bool)
}

// NopCounters discards every observation. Used by components and tests that
// do not care about metrics.
type NopCounters struct{}

var _ Counters = NopCounters{}

func (NopCounters) RecordRequestOutcome(success bool)                 {}
func (NopCounters) RecordScalingOutcome(success bool)                 {}
func (NopCounters) RecordScalingDenied(reason DenialReason)           {}
func (NopCounters) RecordScalingDuration(method string, previousSize, requestedSize *uint64, durationMillis int64) {
}
func (NopCounters) RecordDownstreamPublishOutcome(success bool) {}
