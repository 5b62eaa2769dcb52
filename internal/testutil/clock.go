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

// Package testutil collects small test doubles shared across this module's
// test suites, grounded on the teacher's internal/test package.
package testutil

import "time"

// FakeClock is a clock that only changes when we tell it to, expressed in
// milliseconds since the epoch to match core.PersistedState's timestamp
// representation directly (unlike the teacher's second-granularity
// FakeClock, since the autoscaler's cooldown arithmetic is millisecond-based).
type FakeClock int64

// Now returns the current fake time in milliseconds since the epoch.
func (f *FakeClock) Now() int64 {
	return int64(*f)
}

// NowTime is a double for time.Now(), for callers that need a time.Time.
func (f *FakeClock) NowTime() time.Time {
	return time.UnixMilli(int64(*f)).UTC()
}

// Step advances the clock by one second.
func (f *FakeClock) Step() {
	*f += FakeClock(time.Second / time.Millisecond)
}

// StepBy advances the clock by the given duration.
func (f *FakeClock) StepBy(d time.Duration) {
	*f += FakeClock(d / time.Millisecond)
}
