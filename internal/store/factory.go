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

package store

import (
	"context"
	"fmt"

	"github.com/go-gorp/gorp/v3"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// Backend names recognized by Factory.New, matching snapshot.StateBackend
// (§4.C).
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Factory builds a core.StateStore for a tick by inspecting
// snapshot.StateBackend/snapshot.StateLocation, holding the long-lived
// connections (DB pool, in-memory registry) that individual stores are
// cheaply scoped out of on every call.
type Factory struct {
	DB     *gorp.DbMap
	Memory *MemoryRegistry
}

// NewFactory constructs a Factory. Either dependency may be nil if that
// backend is never named by any snapshot the process will see.
func NewFactory(db *gorp.DbMap, memory *MemoryRegistry) *Factory {
	return &Factory{DB: db, Memory: memory}
}

// New implements core.StateStoreFactory.
func (f *Factory) New(ctx context.Context, snapshot core.InstanceSnapshot) (core.StateStore, error) {
	switch snapshot.StateBackend {
	case BackendPostgres, "":
		if f.DB == nil {
			return nil, fmt.Errorf("state backend %q requested but no Postgres connection is configured", snapshot.StateBackend)
		}
		return NewPostgresStore(f.DB, snapshot.ProjectID, snapshot.InstanceID), nil
	case BackendMemory:
		if f.Memory == nil {
			return nil, fmt.Errorf("state backend %q requested but no memory registry is configured", snapshot.StateBackend)
		}
		return f.Memory.ForInstance(snapshot.ProjectID, snapshot.InstanceID), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", snapshot.StateBackend)
	}
}

var _ core.StateStoreFactory = (&Factory{}).New
