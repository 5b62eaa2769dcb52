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
	"github.com/sapcc/go-bits/errext"
)

// Units identifies the unit in which an instance's capacity is expressed.
type Units string

const (
	// UnitNodes means that capacity is expressed as a whole number of nodes.
	UnitNodes Units = "NODES"
	// UnitProcessingUnits means that capacity is expressed in finer-grained
	// processing units.
	UnitProcessingUnits Units = "PROCESSING_UNITS"
)

// MetricObservation is a single named metric reading within an
// InstanceSnapshot, together with the threshold it is being compared
// against and the margin by which it missed or cleared that threshold.
type MetricObservation struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Margin    float64 `json:"margin"`
}

// InstanceSnapshot is the immutable, per-tick observation of one instance
// that an ingress adapter hands to the orchestrator. See §3 of the autoscaler
// design for the authoritative field semantics.
type InstanceSnapshot struct {
	ProjectID string `json:"project_id"`
	InstanceID string `json:"instance_id"`

	Units       Units  `json:"units"`
	CurrentSize uint64 `json:"current_size"`
	MinSize     uint64 `json:"min_size"`
	MaxSize     uint64 `json:"max_size"`

	ScaleOutCoolingMinutes uint32  `json:"scale_out_cooling_minutes"`
	ScaleInCoolingMinutes  uint32  `json:"scale_in_cooling_minutes"`
	OverloadCoolingMinutes *uint32 `json:"overload_cooling_minutes,omitempty"`
	IsOverloaded           bool    `json:"is_overloaded"`

	ScalingMethod   string `json:"scaling_method"`
	DownstreamTopic string `json:"downstream_topic,omitempty"`

	// StateBackend and StateLocation select the State Store Adapter for this
	// tick (§4.C): the snapshot names the store backend and its location.
	StateBackend string `json:"state_backend"`
	StateLocation string `json:"state_location"`

	Metrics []MetricObservation `json:"metrics"`
}

// Validate checks that a freshly deserialized snapshot is well-formed. It
// does not mutate the snapshot; callers that need to substitute the default
// scaling method still go through the Registry (see methods.go), since that
// substitution must be logged and reflected back into the snapshot that is
// passed to every other component.
func (s InstanceSnapshot) Validate() error {
	var errs errext.ErrorSet
	if s.ProjectID == "" {
		errs.Addf("project_id must not be empty")
	}
	if s.InstanceID == "" {
		errs.Addf("instance_id must not be empty")
	}
	if s.Units != UnitNodes && s.Units != UnitProcessingUnits {
		errs.Addf("units must be %q or %q, got %q", UnitNodes, UnitProcessingUnits, s.Units)
	}
	if s.CurrentSize == 0 {
		errs.Addf("current_size must be a positive integer")
	}
	if s.MinSize > s.CurrentSize {
		errs.Addf("min_size must not exceed current_size")
	}
	if s.MaxSize != 0 && s.MaxSize < s.MinSize {
		errs.Addf("max_size must not be below min_size")
	}
	if s.ScalingMethod == "" {
		errs.Addf("scaling_method must not be empty")
	}
	if errs.IsEmpty() {
		return nil
	}
	return errs
}
