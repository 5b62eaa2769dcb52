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

package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/sqlext"
)

// InFlightOperationsCollector is a prometheus.Collector that submits a gauge
// per in-flight scaling operation currently tracked in the state store, so
// that operators don't have to reconcile a separate metric whenever an
// operation finishes (it simply stops being emitted on the next scrape).
// Grounded on the teacher's StateMetricsCollector, which applies the same
// query-at-scrape-time pattern for the same reason.
type InFlightOperationsCollector struct {
	DB *sql.DB
}

var inFlightOperationGauge = prometheus.NewDesc(
	"autoscaler_operation_in_flight",
	"Constant value of 1 for each instance with a scaling operation currently in flight.",
	[]string{"project_id", "instance_id", "method"}, nil,
)

// Describe implements the prometheus.Collector interface.
func (c InFlightOperationsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- inFlightOperationGauge
}

var inFlightOperationsQuery = `
	SELECT project_id, instance_id, COALESCE(scaling_method, '')
	  FROM instance_scaling_state
	 WHERE scaling_operation_id IS NOT NULL
`

// Collect implements the prometheus.Collector interface.
func (c InFlightOperationsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.DB == nil {
		return
	}
	err := sqlext.ForeachRow(c.DB, inFlightOperationsQuery, nil, func(rows *sql.Rows) error {
		var projectID, instanceID, method string
		if err := rows.Scan(&projectID, &instanceID, &method); err != nil {
			return err
		}
		ch <- prometheus.MustNewConstMetric(inFlightOperationGauge, prometheus.GaugeValue, 1, projectID, instanceID, method)
		return nil
	})
	if err != nil {
		logg.Error("collect in-flight operation metrics failed: %s", err.Error())
	}
}
