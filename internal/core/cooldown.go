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

import "github.com/sapcc/go-bits/logg"

// millisPerMinute converts a cooldown expressed in minutes (§3, §4.F) into
// the millisecond timestamps that state and now are expressed in.
const millisPerMinute = 60_000

// CooldownEvaluator is the Cooldown Evaluator (component F): a pure
// (aside from logging) function of snapshot, suggestedSize, state and now
// that decides whether a resize may be submitted this tick.
type CooldownEvaluator struct{}

// NewCooldownEvaluator constructs a CooldownEvaluator.
func NewCooldownEvaluator() CooldownEvaluator {
	return CooldownEvaluator{}
}

// Admit implements the §4.F algorithm.
func (CooldownEvaluator) Admit(snapshot InstanceSnapshot, suggestedSize uint64, state PersistedState, now int64) bool {
	scaleOut := suggestedSize > snapshot.CurrentSize

	var cooldownMinutes uint32
	switch {
	case snapshot.IsOverloaded:
		if snapshot.OverloadCoolingMinutes != nil {
			cooldownMinutes = *snapshot.OverloadCoolingMinutes
		} else {
			logg.Info("instance %s in project %s is overloaded but has no overload_cooling_minutes, defaulting to scale_out_cooling_minutes",
				snapshot.InstanceID, snapshot.ProjectID)
			cooldownMinutes = snapshot.ScaleOutCoolingMinutes
		}
	case scaleOut:
		cooldownMinutes = snapshot.ScaleOutCoolingMinutes
	default:
		cooldownMinutes = snapshot.ScaleInCoolingMinutes
	}

	reference := state.ReferenceTimestamp()
	if reference == 0 {
		return true
	}
	return now-reference >= int64(cooldownMinutes)*millisPerMinute
}
