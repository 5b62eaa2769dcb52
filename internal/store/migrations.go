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

// SQLMigrations must be public because it's also used by tests.
var SQLMigrations = map[string]string{
	"001_initial.down.sql": `
		DROP TABLE instance_scaling_state;
	`,
	"001_initial.up.sql": `
		CREATE TABLE instance_scaling_state (
			id                               BIGSERIAL  NOT NULL PRIMARY KEY,
			project_id                       TEXT       NOT NULL,
			instance_id                      TEXT       NOT NULL,
			scaling_operation_id             TEXT       DEFAULT NULL,
			last_scaling_timestamp           BIGINT     NOT NULL DEFAULT 0,
			last_scaling_complete_timestamp  BIGINT     DEFAULT NULL,
			scaling_method                   TEXT       DEFAULT NULL,
			scaling_previous_size            BIGINT     DEFAULT NULL,
			scaling_requested_size           BIGINT     DEFAULT NULL,
			UNIQUE(project_id, instance_id)
		);
	`,
}
