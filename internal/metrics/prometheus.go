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

// Package metrics is the Prometheus-backed implementation of the Counters
// Facade (component I).
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapcc/dbautoscaler/internal/core"
)

var requestsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoscaler_requests_total",
		Help: "Counter for ingested instance snapshots, by outcome.",
	},
	[]string{"outcome"},
)

var scalingCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoscaler_scaling_total",
		Help: "Counter for completed resize operations, by outcome.",
	},
	[]string{"outcome"},
)

var scalingDeniedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoscaler_scaling_denied_total",
		Help: "Counter for ticks that declined to resize, by reason.",
	},
	[]string{"reason"},
)

var scalingDurationHistogram = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "autoscaler_scaling_duration_seconds",
		Help:    "Observed duration of completed resize operations.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s .. ~2h
	},
	[]string{"method", "previous_size", "requested_size"},
)

var downstreamPublishCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoscaler_downstream_publish_total",
		Help: "Counter for Downstream Emitter publish attempts, by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(requestsCounter)
	prometheus.MustRegister(scalingCounter)
	prometheus.MustRegister(scalingDeniedCounter)
	prometheus.MustRegister(scalingDurationHistogram)
	prometheus.MustRegister(downstreamPublishCounter)
}

// PrometheusCounters implements core.Counters against the package-level
// CounterVecs/HistogramVec above, mirroring the teacher's
// opStateTransitionCounter: a package-level prometheus.NewCounterVec
// registered in init(), with a thin Record* method set in front of it.
type PrometheusCounters struct{}

var _ core.Counters = PrometheusCounters{}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// RecordRequestOutcome implements core.Counters.
func (PrometheusCounters) RecordRequestOutcome(success bool) {
	requestsCounter.With(prometheus.Labels{"outcome": outcomeLabel(success)}).Inc()
}

// RecordScalingOutcome implements core.Counters.
func (PrometheusCounters) RecordScalingOutcome(success bool) {
	scalingCounter.With(prometheus.Labels{"outcome": outcomeLabel(success)}).Inc()
}

// RecordScalingDenied implements core.Counters.
func (PrometheusCounters) RecordScalingDenied(reason core.DenialReason) {
	scalingDeniedCounter.With(prometheus.Labels{"reason": string(reason)}).Inc()
}

// RecordScalingDuration implements core.Counters. previousSize/requestedSize
// are bucketed as free-form string labels, the same way the teacher labels
// castellum_operation_state_transitions with free-form from_state/to_state
// strings rather than numeric buckets.
func (PrometheusCounters) RecordScalingDuration(method string, previousSize, requestedSize *uint64, durationMillis int64) {
	scalingDurationHistogram.With(prometheus.Labels{
		"method":         method,
		"previous_size":  sizeLabel(previousSize),
		"requested_size": sizeLabel(requestedSize),
	}).Observe(float64(durationMillis) / 1000.0)
}

// RecordDownstreamPublishOutcome implements core.Counters.
func (PrometheusCounters) RecordDownstreamPublishOutcome(success bool) {
	downstreamPublishCounter.With(prometheus.Labels{"outcome": outcomeLabel(success)}).Inc()
}

func sizeLabel(size *uint64) string {
	if size == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *size)
}
