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

package testutil

import (
	"encoding/json"
	"testing"
)

// AssertJSONEqual checks that both given values have identical JSON
// serializations, exactly like the teacher's test.T.AssertJSONEqual.
func AssertJSONEqual(t *testing.T, variable string, actual, expected any) {
	t.Helper()
	expectedJSON, _ := json.Marshal(expected)
	actualJSON, _ := json.Marshal(actual)
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("expected %s = %s", variable, string(expectedJSON))
		t.Errorf("  actual %s = %s", variable, string(actualJSON))
	}
}

// UintPtr is a convenience constructor for *uint64 literals in test tables.
func UintPtr(v uint64) *uint64 { return &v }

// IntPtr is a convenience constructor for *int64 literals in test tables.
func IntPtr(v int64) *int64 { return &v }

// StringPtr is a convenience constructor for *string literals in test tables.
func StringPtr(v string) *string { return &v }
