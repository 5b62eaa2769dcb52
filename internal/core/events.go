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

// EventName is the closed enumeration of downstream event names (§6).
type EventName string

const (
	EventScaling        EventName = "SCALING"
	EventScalingFailure EventName = "SCALING_FAILURE"
)

// DownstreamEvent is the wire-exact payload published to the downstream
// topic named by the snapshot (§6).
type DownstreamEvent struct {
	ProjectID     string               `json:"project_id"`
	InstanceID    string               `json:"instance_id"`
	CurrentSize   *uint64              `json:"current_size,omitempty"`
	SuggestedSize *uint64              `json:"suggested_size,omitempty"`
	Units         *Units               `json:"units,omitempty"`
	Metrics       []MetricObservation  `json:"metrics"`
}

// EventEmitter is the Downstream Emitter (component H). Emission failures
// must be logged by the implementation but never propagated to the
// orchestrator (§4.H, §7 item 6) — Emit therefore has no error return.
type EventEmitter interface {
	Emit(ctx context.Context, name EventName, topic string, event DownstreamEvent)
}

// NullEmitter drops every event. Used in tests and as the safe default when
// no downstream transport is configured.
type NullEmitter struct{}

var _ EventEmitter = NullEmitter{}

func (NullEmitter) Emit(ctx context.Context, name EventName, topic string, event DownstreamEvent) {}
