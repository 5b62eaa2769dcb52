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
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sapcc/dbautoscaler/internal/core"
)

func TestClientStartPostsExpectedBody(t *testing.T) {
	var gotBody, gotIdempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		fmt.Fprint(w, `{"name": "op-123"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	snap := core.InstanceSnapshot{InstanceID: "i1", Units: core.UnitNodes}
	id, err := c.Start(context.Background(), snap, 12)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if id != "op-123" {
		t.Errorf("expected operation id op-123, got %q", id)
	}
	if gotBody != `{"instance":"i1","nodeCount":12}` {
		t.Errorf("unexpected request body: %s", gotBody)
	}
	if gotIdempotencyKey == "" {
		t.Error("expected a non-empty Idempotency-Key header on every resize submission")
	}
}

func TestClientStartUsesDistinctIdempotencyKeysPerCall(t *testing.T) {
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		fmt.Fprint(w, `{"name": "op-123"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	snap := core.InstanceSnapshot{InstanceID: "i1", Units: core.UnitNodes}
	if _, err := c.Start(context.Background(), snap, 12); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, err := c.Start(context.Background(), snap, 13); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(keys) != 2 || keys[0] == keys[1] {
		t.Errorf("expected two distinct idempotency keys, got %v", keys)
	}
}

func TestClientFetchStatusAbsentEndTimeIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "metadata": {"startTime": "2024-01-01T00:00:00Z", "instance": {"nodeCount": 11}}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	status, err := c.FetchStatus(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("expected absent end time to not be an error, got: %s", err)
	}
	if status.EndTime != nil {
		t.Errorf("expected a nil end time, got %v", status.EndTime)
	}
	if status.StartTime == nil {
		t.Error("expected a parsed start time")
	}
}

func TestClientFetchStatusMalformedEndTimeIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "metadata": {"startTime": "2024-01-01T00:00:00Z", "endTime": "not-a-time"}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.FetchStatus(context.Background(), "op-1")
	if err == nil {
		t.Fatal("expected an unparseable end time to be an error")
	}
	if _, ok := err.(core.MalformedOperationMetadataError); !ok {
		t.Errorf("expected core.MalformedOperationMetadataError, got %T", err)
	}
}

func TestClientFetchStatusReportsOperationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "error": "resize target unreachable"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	status, err := c.FetchStatus(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("unexpected transport-level error: %s", err)
	}
	if status.Err == nil {
		t.Fatal("expected status.Err to carry the operation failure")
	}
}

func TestClientFetchStatusStillInProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": false, "metadata": {"expectedFulfillmentPeriod": "Extended"}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	status, err := c.FetchStatus(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if status.Done {
		t.Error("expected Done to be false")
	}
	if status.Fulfillment != core.FulfillmentExtended {
		t.Errorf("expected Extended fulfillment, got %q", status.Fulfillment)
	}
}
