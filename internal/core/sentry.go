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

import (
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/sapcc/go-bits/logg"
)

// sendEventsToSentry tells whether tick errors should be sent to a Sentry
// server. Set by InitSentry; false (the default) makes CaptureTickError a
// no-op, which is what every unit test gets for free.
var sendEventsToSentry bool

// InitSentry initializes the Sentry client from a DSN, usually read from
// the environment by the ingress adapter's main() before serving any
// ticks. Calling it with an empty DSN disables Sentry reporting.
func InitSentry(dsn string) {
	if dsn == "" {
		return
	}
	err := sentry.Init(sentry.ClientOptions{Dsn: dsn})
	if err != nil {
		logg.Error("Sentry initialization failed: %s", err.Error())
		return
	}
	sendEventsToSentry = true
}

// tickError is the interface that a core error must implement to generate
// custom context information for a Sentry event (best-effort telemetry;
// never changes control flow).
type tickError interface {
	generateTags(snapshot InstanceSnapshot) map[string]string
	Error() string
}

// CaptureTickError reports a tick's terminal error to Sentry, tagged with
// the snapshot's project/instance so that events group by instance. This is
// purely observational: it is always safe to skip (and does nothing when
// Sentry was never initialized).
func CaptureTickError(snapshot InstanceSnapshot, err error) {
	if !sendEventsToSentry || err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetFingerprint([]string{snapshot.ProjectID, snapshot.InstanceID})
		tags := map[string]string{
			"project_id":  snapshot.ProjectID,
			"instance_id": snapshot.InstanceID,
		}
		// errors.As, not a plain type assertion: Tick wraps every error it
		// returns with fmt.Errorf("...: %w", ...), so the concrete
		// tickError is usually one layer down from what the caller sees.
		var te tickError
		if errors.As(err, &te) {
			for k, v := range te.generateTags(snapshot) {
				tags[k] = v
			}
		}
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
