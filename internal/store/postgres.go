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
	"net/url"

	"github.com/go-gorp/gorp/v3"
	_ "github.com/lib/pq"
	"github.com/sapcc/go-bits/easypg"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// ConnectPostgres opens the database, runs any pending migrations, and wraps
// the connection in a *gorp.DbMap, mirroring the teacher's db.Init.
func ConnectPostgres(dbURL *url.URL) (*gorp.DbMap, error) {
	dbConn, err := easypg.Prepare(easypg.Configuration{
		PostgresURL: dbURL,
		Migrations:  SQLMigrations,
	})
	if err != nil {
		return nil, err
	}

	dbMap := &gorp.DbMap{Db: dbConn, Dialect: gorp.PostgresDialect{}}
	dbMap.AddTableWithName(stateRow{}, "instance_scaling_state").SetKeys(true, "ID")
	return dbMap, nil
}

// stateRow is the gorp-mapped row behind instance_scaling_state. It adds the
// (project_id, instance_id) key to core.PersistedState's fields.
type stateRow struct {
	ID         int64  `db:"id"`
	ProjectID  string `db:"project_id"`
	InstanceID string `db:"instance_id"`

	ScalingOperationID *string `db:"scaling_operation_id"`

	LastScalingTimestamp         int64  `db:"last_scaling_timestamp"`
	LastScalingCompleteTimestamp *int64 `db:"last_scaling_complete_timestamp"`

	ScalingMethod        *string `db:"scaling_method"`
	ScalingPreviousSize  *int64  `db:"scaling_previous_size"`
	ScalingRequestedSize *int64  `db:"scaling_requested_size"`
}

func (r stateRow) toPersistedState() core.PersistedState {
	return core.PersistedState{
		ScalingOperationID:           r.ScalingOperationID,
		LastScalingTimestamp:         r.LastScalingTimestamp,
		LastScalingCompleteTimestamp: r.LastScalingCompleteTimestamp,
		ScalingMethod:                r.ScalingMethod,
		ScalingPreviousSize:          uint64PtrFromInt64Ptr(r.ScalingPreviousSize),
		ScalingRequestedSize:         uint64PtrFromInt64Ptr(r.ScalingRequestedSize),
	}
}

func rowFromPersistedState(projectID, instanceID string, s core.PersistedState) stateRow {
	return stateRow{
		ProjectID:                    projectID,
		InstanceID:                   instanceID,
		ScalingOperationID:           s.ScalingOperationID,
		LastScalingTimestamp:         s.LastScalingTimestamp,
		LastScalingCompleteTimestamp: s.LastScalingCompleteTimestamp,
		ScalingMethod:                s.ScalingMethod,
		ScalingPreviousSize:          int64PtrFromUint64Ptr(s.ScalingPreviousSize),
		ScalingRequestedSize:         int64PtrFromUint64Ptr(s.ScalingRequestedSize),
	}
}

func uint64PtrFromInt64Ptr(p *int64) *uint64 {
	if p == nil {
		return nil
	}
	v := uint64(*p)
	return &v
}

func int64PtrFromUint64Ptr(p *uint64) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

// PostgresStore is the Postgres-backed State Store Adapter, scoped to one
// (project, instance) pair for the duration of a tick.
type PostgresStore struct {
	DB         *gorp.DbMap
	ProjectID  string
	InstanceID string
}

var _ core.StateStore = (*PostgresStore)(nil)

// NewPostgresStore constructs a PostgresStore scoped to one instance.
func NewPostgresStore(db *gorp.DbMap, projectID, instanceID string) *PostgresStore {
	return &PostgresStore{DB: db, ProjectID: projectID, InstanceID: instanceID}
}

// Get implements core.StateStore.
func (s *PostgresStore) Get(ctx context.Context) (core.PersistedState, error) {
	var rows []stateRow
	_, err := s.DB.WithContext(ctx).Select(&rows,
		`SELECT * FROM instance_scaling_state WHERE project_id = $1 AND instance_id = $2`,
		s.ProjectID, s.InstanceID)
	if err != nil {
		return core.PersistedState{}, err
	}
	if len(rows) == 0 {
		return core.PersistedState{}, nil
	}
	return rows[0].toPersistedState(), nil
}

// Update implements core.StateStore: an upsert keyed by (project_id,
// instance_id), matching the teacher's UNIQUE(scope_uuid, asset_type)
// pattern on resources.
func (s *PostgresStore) Update(ctx context.Context, state core.PersistedState) error {
	row := rowFromPersistedState(s.ProjectID, s.InstanceID, state)
	_, err := s.DB.WithContext(ctx).Exec(`
		INSERT INTO instance_scaling_state (
			project_id, instance_id, scaling_operation_id,
			last_scaling_timestamp, last_scaling_complete_timestamp,
			scaling_method, scaling_previous_size, scaling_requested_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (project_id, instance_id) DO UPDATE SET
			scaling_operation_id = EXCLUDED.scaling_operation_id,
			last_scaling_timestamp = EXCLUDED.last_scaling_timestamp,
			last_scaling_complete_timestamp = EXCLUDED.last_scaling_complete_timestamp,
			scaling_method = EXCLUDED.scaling_method,
			scaling_previous_size = EXCLUDED.scaling_previous_size,
			scaling_requested_size = EXCLUDED.scaling_requested_size
	`, row.ProjectID, row.InstanceID, row.ScalingOperationID,
		row.LastScalingTimestamp, row.LastScalingCompleteTimestamp,
		row.ScalingMethod, row.ScalingPreviousSize, row.ScalingRequestedSize)
	return err
}

// Close implements core.StateStore. The *gorp.DbMap is shared across ticks
// and owned by the process, not by any one PostgresStore, so Close is a
// no-op; the pool itself is closed at process shutdown.
func (s *PostgresStore) Close() error {
	return nil
}
