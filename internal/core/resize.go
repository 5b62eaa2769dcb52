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

// ResizeDriver is the Resize Driver (component D): it submits a single
// resize request and returns the opaque operation id that the Operation
// Tracker later polls. Implementations perform no retry; a failed Start
// call is surfaced to the orchestrator verbatim (§4.D, §7 item 3).
type ResizeDriver interface {
	// Start submits a resize of the instance named in snapshot to
	// targetSize, expressed in snapshot.Units. The request body carries
	// exactly one of nodeCount or processingUnits, selected by Units.
	Start(ctx context.Context, snapshot InstanceSnapshot, targetSize uint64) (operationID string, err error)
}
