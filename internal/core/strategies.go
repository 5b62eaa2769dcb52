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
	"math"
	"sync"

	"github.com/sapcc/go-bits/logg"
)

// clampSize forces size into [min, max], treating max == 0 as "unbounded".
func clampSize(size, min, max uint64) uint64 {
	if size < min {
		size = min
	}
	if max != 0 && size > max {
		size = max
	}
	return size
}

// StepwiseStrategy steps the current size up or down by a configured
// percentage, rounding a too-small step up to one unit. This is the default
// strategy (DefaultMethodName) and is grounded on the teacher's
// core.GetNewSize.
type StepwiseStrategy struct {
	// StepPercent is the percentage of current size that one step covers.
	StepPercent uint64
}

// NewStepwiseStrategy constructs a StepwiseStrategy with the given step size.
// A stepPercent of 0 is treated as 10, the teacher's historical default.
func NewStepwiseStrategy(stepPercent uint64) *StepwiseStrategy {
	if stepPercent == 0 {
		stepPercent = 10
	}
	return &StepwiseStrategy{StepPercent: stepPercent}
}

// Suggest implements SizingStrategy.
func (s *StepwiseStrategy) Suggest(snapshot InstanceSnapshot) uint64 {
	step := (snapshot.CurrentSize * s.StepPercent) / 100
	if step == 0 {
		step = 1
	}

	if snapshot.IsOverloaded {
		return clampSize(snapshot.CurrentSize+step, snapshot.MinSize, snapshot.MaxSize)
	}

	if !worstMarginBreachesLow(snapshot) {
		return clampSize(snapshot.CurrentSize, snapshot.MinSize, snapshot.MaxSize)
	}

	// going down: never let the new size underflow below 1
	if snapshot.CurrentSize < 1+step {
		return clampSize(1, snapshot.MinSize, snapshot.MaxSize)
	}
	return clampSize(snapshot.CurrentSize-step, snapshot.MinSize, snapshot.MaxSize)
}

// worstMarginBreachesLow reports whether any observed metric cleared its
// threshold with room to spare, the signal that a scale-in is warranted.
func worstMarginBreachesLow(snapshot InstanceSnapshot) bool {
	for _, m := range snapshot.Metrics {
		if m.Margin < 0 {
			return true
		}
	}
	return false
}

// LinearStrategy targets a size proportional to the worst-margin metric,
// i.e. currentSize scaled by the largest observed value/threshold ratio.
// The ratio is never taken below 1, so this strategy only scales out or
// keeps the current size; it never suggests a scale-in.
type LinearStrategy struct{}

// NewLinearStrategy constructs a LinearStrategy.
func NewLinearStrategy() *LinearStrategy {
	return &LinearStrategy{}
}

// Suggest implements SizingStrategy.
func (s *LinearStrategy) Suggest(snapshot InstanceSnapshot) uint64 {
	maxRatio := 1.0
	for _, m := range snapshot.Metrics {
		if m.Threshold <= 0 {
			continue
		}
		ratio := m.Value / m.Threshold
		if ratio > maxRatio {
			maxRatio = ratio
		}
	}

	target := math.Ceil(float64(snapshot.CurrentSize) * maxRatio)
	if target < 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		target = float64(snapshot.CurrentSize)
	}
	return clampSize(uint64(target), snapshot.MinSize, snapshot.MaxSize)
}

// targetSizeMetricName is the well-known metric name that DirectStrategy
// inspects for an explicit operator-supplied target size.
const targetSizeMetricName = "target_size"

// DirectStrategy is a pass-through strategy for tests and manual operator
// overrides: it returns the current size unchanged unless a metric named
// "target_size" is present.
type DirectStrategy struct {
	legacyWarnOnce sync.Once
}

// NewDirectStrategy constructs a DirectStrategy.
func NewDirectStrategy() *DirectStrategy {
	return &DirectStrategy{}
}

// Suggest implements SizingStrategy.
func (s *DirectStrategy) Suggest(snapshot InstanceSnapshot) uint64 {
	for _, m := range snapshot.Metrics {
		if m.Name == targetSizeMetricName {
			return clampSize(uint64(math.Round(m.Value)), snapshot.MinSize, snapshot.MaxSize)
		}
	}
	return clampSize(snapshot.CurrentSize, snapshot.MinSize, snapshot.MaxSize)
}

// SuggestLegacy implements LegacySizingStrategy for callers still on the
// deprecated sizing operation (§4.B, §9); it logs the deprecation warning
// exactly once per strategy instance and then delegates to Suggest.
func (s *DirectStrategy) SuggestLegacy(snapshot InstanceSnapshot) uint64 {
	s.legacyWarnOnce.Do(func() {
		logg.Info("instance %s in project %s used the deprecated legacy sizing operation on method %q",
			snapshot.InstanceID, snapshot.ProjectID, snapshot.ScalingMethod)
	})
	return s.Suggest(snapshot)
}
