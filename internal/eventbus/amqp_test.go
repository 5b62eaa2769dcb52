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

package eventbus

import (
	"context"
	"testing"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// TestAMQPEmitterDropsOnFullChannel exercises Emit's non-blocking behavior
// without a real broker: the background publish loop is never started, so
// the buffered channel fills up and subsequent events must be dropped
// rather than block the caller.
func TestAMQPEmitterDropsOnFullChannel(t *testing.T) {
	var failed int
	e := &AMQPEmitter{
		jobs:     make(chan publishJob, 2),
		OnFailed: func() { failed++ },
	}

	event := core.DownstreamEvent{ProjectID: "p1", InstanceID: "i1"}
	for i := 0; i < 3; i++ {
		e.Emit(context.Background(), core.EventScaling, "topic", event)
	}

	if failed != 1 {
		t.Errorf("expected exactly one dropped event once the channel filled, got %d", failed)
	}
	if len(e.jobs) != 2 {
		t.Errorf("expected the channel to remain at capacity 2, got %d", len(e.jobs))
	}
}

func TestAMQPEmitterEnqueuesWithinCapacity(t *testing.T) {
	e := &AMQPEmitter{
		jobs: make(chan publishJob, 2),
	}

	e.Emit(context.Background(), core.EventScalingFailure, "topic", core.DownstreamEvent{ProjectID: "p1", InstanceID: "i1"})
	if len(e.jobs) != 1 {
		t.Fatalf("expected one enqueued job, got %d", len(e.jobs))
	}
	job := <-e.jobs
	if job.Name != core.EventScalingFailure || job.Topic != "topic" {
		t.Errorf("unexpected job contents: %+v", job)
	}
}
