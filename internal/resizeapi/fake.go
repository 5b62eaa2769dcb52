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

package resizeapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// FakeOperation is a scripted resize operation tracked by Fake. It is only
// used in tests as a double for an actual resize/status API pair.
type FakeOperation struct {
	Done        bool
	Err         error
	StartTime   *int64
	EndTime     *int64
	Fulfillment core.Fulfillment
	TargetSize  uint64

	// RemainingStatusCalls, when non-zero, models an operation that only
	// reports Done after this many FetchStatus calls have been made.
	RemainingStatusCalls uint
}

// Fake is a core.ResizeDriver and core.StatusFetcher double for testing the
// orchestrator without a network dependency. Attempts to start a resize
// succeed unless StartFails is set; operations can be pre-scripted via
// Operations or left to default to an immediately-done success.
type Fake struct {
	mu sync.Mutex

	// StartFails, when true, makes every Start call fail.
	StartFails bool
	// NextOperationID is used (and incremented) for every successful Start.
	NextOperationID int

	// Operations holds scripted status responses, keyed by operation id.
	// FetchStatus returns errUnknownOperation for any id not present here.
	Operations map[string]*FakeOperation
}

var (
	_ core.ResizeDriver  = (*Fake)(nil)
	_ core.StatusFetcher = (*Fake)(nil)
)

// NewFake constructs an empty Fake.
func NewFake() *Fake {
	return &Fake{Operations: make(map[string]*FakeOperation)}
}

var errSimulatedStartFailure = errors.New("Start failing as requested")
var errUnknownOperation = errors.New("no such operation")

// Start implements core.ResizeDriver.
func (f *Fake) Start(ctx context.Context, snapshot core.InstanceSnapshot, targetSize uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartFails {
		return "", errSimulatedStartFailure
	}

	f.NextOperationID++
	id := fmt.Sprintf("op-%d", f.NextOperationID)
	f.Operations[id] = &FakeOperation{
		Done:        true,
		Fulfillment: core.FulfillmentNormal,
		TargetSize:  targetSize,
	}
	return id, nil
}

// FetchStatus implements core.StatusFetcher.
func (f *Fake) FetchStatus(ctx context.Context, operationID string) (core.OperationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op, exists := f.Operations[operationID]
	if !exists {
		return core.OperationStatus{}, errUnknownOperation
	}

	if op.RemainingStatusCalls > 0 {
		op.RemainingStatusCalls--
		return core.OperationStatus{Done: false, Fulfillment: op.Fulfillment}, nil
	}

	target := op.TargetSize
	return core.OperationStatus{
		Done:            op.Done,
		Err:             op.Err,
		StartTime:       op.StartTime,
		EndTime:         op.EndTime,
		Fulfillment:     op.Fulfillment,
		NodeCount:       &target,
		ProcessingUnits: nil,
	}, nil
}
