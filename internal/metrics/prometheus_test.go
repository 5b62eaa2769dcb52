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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sapcc/dbautoscaler/internal/core"
)

func TestPrometheusCountersRecordRequestOutcome(t *testing.T) {
	c := PrometheusCounters{}
	before := testutil.ToFloat64(requestsCounter.With(prometheus.Labels{"outcome": "success"}))
	c.RecordRequestOutcome(true)
	after := testutil.ToFloat64(requestsCounter.With(prometheus.Labels{"outcome": "success"}))
	if after != before+1 {
		t.Errorf("expected the success counter to increment by 1, went from %v to %v", before, after)
	}
}

func TestPrometheusCountersRecordScalingDenied(t *testing.T) {
	c := PrometheusCounters{}
	before := testutil.ToFloat64(scalingDeniedCounter.With(prometheus.Labels{"reason": string(core.DenialWithinCooldown)}))
	c.RecordScalingDenied(core.DenialWithinCooldown)
	after := testutil.ToFloat64(scalingDeniedCounter.With(prometheus.Labels{"reason": string(core.DenialWithinCooldown)}))
	if after != before+1 {
		t.Errorf("expected the cooldown denial counter to increment by 1, went from %v to %v", before, after)
	}
}

func TestPrometheusCountersRecordScalingDurationUnknownSizeLabel(t *testing.T) {
	if got := sizeLabel(nil); got != "unknown" {
		t.Errorf(`expected "unknown" for a nil size, got %q`, got)
	}
	ten := uint64(10)
	if got := sizeLabel(&ten); got != "10" {
		t.Errorf(`expected "10", got %q`, got)
	}
}

func TestPrometheusCountersRecordDownstreamPublishOutcome(t *testing.T) {
	c := PrometheusCounters{}
	before := testutil.ToFloat64(downstreamPublishCounter.With(prometheus.Labels{"outcome": "failed"}))
	c.RecordDownstreamPublishOutcome(false)
	after := testutil.ToFloat64(downstreamPublishCounter.With(prometheus.Labels{"outcome": "failed"}))
	if after != before+1 {
		t.Errorf("expected the failed counter to increment by 1, went from %v to %v", before, after)
	}
}

func TestInFlightOperationsCollectorWithNoDatabaseCollectsNothing(t *testing.T) {
	c := InFlightOperationsCollector{}
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count != 0 {
		t.Errorf("expected no metrics when DB is nil, got %d", count)
	}
}
