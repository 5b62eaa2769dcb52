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

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// NullEmitter logs every event at debug level and drops it. Used in tests
// and as the safe default when no AMQP URI is configured.
type NullEmitter struct{}

var _ core.EventEmitter = NullEmitter{}

// Emit implements core.EventEmitter.
func (NullEmitter) Emit(ctx context.Context, name core.EventName, topic string, event core.DownstreamEvent) {
	logg.Debug("dropping %s event for instance %s in project %s (no downstream transport configured)",
		name, event.InstanceID, event.ProjectID)
}
