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

import "fmt"

// MalformedOperationMetadataError is returned (wrapped) by a StatusFetcher
// when an operation is reported done but the start or end time in its
// metadata cannot be parsed. The Operation Tracker treats it the same as a
// transport error: success-by-fallback (§4.E, §7 item 4).
type MalformedOperationMetadataError struct {
	OperationID string
	Reason      string
}

func (e MalformedOperationMetadataError) Error() string {
	return fmt.Sprintf("operation %s has malformed metadata: %s", e.OperationID, e.Reason)
}

func (e MalformedOperationMetadataError) generateTags(snapshot InstanceSnapshot) map[string]string {
	return map[string]string{
		"scaling_method": snapshot.ScalingMethod,
		"operation_id":   e.OperationID,
	}
}

// UnknownSizingOperationError is returned when a resolved strategy exposes
// neither Suggest nor SuggestLegacy. This should be unreachable for any
// strategy registered through Registry.Register, but the orchestrator still
// aborts the tick on it per §7 item 2 rather than assume a safe default.
type UnknownSizingOperationError struct {
	Method string
}

func (e UnknownSizingOperationError) Error() string {
	return fmt.Sprintf("scaling method %q has no usable sizing operation", e.Method)
}

func (e UnknownSizingOperationError) generateTags(snapshot InstanceSnapshot) map[string]string {
	return map[string]string{"scaling_method": e.Method}
}

// ResizeSubmissionError wraps a Resize Driver failure so that
// CaptureTickError can tag the resulting Sentry event with the scaling
// method in play, the same way the teacher's setAssetSizeError carries
// enough context for sentryException.generateTags (§7 item 3).
type ResizeSubmissionError struct {
	InstanceID string
	Err        error
}

func (e ResizeSubmissionError) Error() string {
	return fmt.Sprintf("could not submit resize for instance %s: %s", e.InstanceID, e.Err.Error())
}

func (e ResizeSubmissionError) Unwrap() error { return e.Err }

func (e ResizeSubmissionError) generateTags(snapshot InstanceSnapshot) map[string]string {
	return map[string]string{"scaling_method": snapshot.ScalingMethod}
}
