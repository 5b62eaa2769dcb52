/*******************************************************************************
*
* Copyright 2019 SAP SE
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/httpee"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/dbautoscaler/internal/config"
	"github.com/sapcc/dbautoscaler/internal/core"
	"github.com/sapcc/dbautoscaler/internal/eventbus"
	"github.com/sapcc/dbautoscaler/internal/ingress/busingress"
	"github.com/sapcc/dbautoscaler/internal/ingress/directingress"
	"github.com/sapcc/dbautoscaler/internal/ingress/httpingress"
	"github.com/sapcc/dbautoscaler/internal/metrics"
	"github.com/sapcc/dbautoscaler/internal/resizeapi"
	"github.com/sapcc/dbautoscaler/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr,
		"usage:\n\t%s serve <config.yaml>\n\t%s tick <config.yaml>\n",
		os.Args[0], os.Args[0],
	)
	os.Exit(1)
}

func main() {
	logg.ShowDebug = config.DebugLoggingEnabled()

	if len(os.Args) < 3 {
		usage()
	}
	configPath := os.Args[2]

	cfg, err := config.Load(configPath)
	if err != nil {
		logg.Fatal("cannot load %s: %s", configPath, err.Error())
	}
	secrets := config.LoadSecretsFromEnv()
	core.InitSentry(secrets.SentryDSN)

	dbURL, err := url.Parse(secrets.PostgresURL)
	if err != nil {
		logg.Fatal("malformed AUTOSCALER_POSTGRES_URL: %s", err.Error())
	}
	dbMap, err := store.ConnectPostgres(dbURL)
	if err != nil {
		logg.Fatal("cannot connect to database: %s", err.Error())
	}
	prometheus.MustRegister(sqlstats.NewStatsCollector("dbautoscaler", dbMap.Db))
	prometheus.MustRegister(metrics.InFlightOperationsCollector{DB: dbMap.Db})

	storeFactory := store.NewFactory(dbMap, store.NewMemoryRegistry())

	registry := core.NewRegistry()
	registry.Register("STEPWISE", core.NewStepwiseStrategy(cfg.StepwisePercent))
	registry.Register("LINEAR", core.NewLinearStrategy())
	registry.Register("DIRECT", core.NewDirectStrategy())

	resizeClient := resizeapi.NewClient(cfg.ResizeAPIBaseURL)
	tracker := core.NewTracker(resizeClient)

	counters := metrics.PrometheusCounters{}

	var emitter core.EventEmitter = eventbus.NullEmitter{}
	if secrets.DownstreamAMQPURI != "" {
		emitter = eventbus.StartAMQPEmitter(context.Background(), secrets.DownstreamAMQPURI,
			func() { counters.RecordDownstreamPublishOutcome(true) },
			func() { counters.RecordDownstreamPublishOutcome(false) },
		)
	}

	orchestrator := core.NewOrchestrator(registry, tracker, resizeClient, emitter, counters)

	switch os.Args[1] {
	case "serve":
		runServe(cfg, orchestrator, storeFactory.New)
	case "tick":
		runInteractiveTickShell(orchestrator, storeFactory.New)
	default:
		usage()
	}
}

func runServe(cfg config.Config, orchestrator *core.Orchestrator, storeFactory core.StateStoreFactory) {
	// wrap the main API handler in several layers of middleware (CORS is
	// deliberately the outermost middleware, to exclude preflight checks
	// from logging)
	handler := httpapi.Compose(httpingress.NewHandler(orchestrator, storeFactory))
	handler = logg.Middleware{}.Wrap(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(handler)

	if cfg.BusIngress != nil {
		consumer := busingress.NewConsumer(orchestrator, storeFactory,
			cfg.BusIngress.AMQPURI, cfg.BusIngress.QueueName, cfg.BusIngress.WorkerCount)
		go func() {
			if err := consumer.Run(context.Background()); err != nil {
				logg.Error("message bus ingress stopped: %s", err.Error())
			}
		}()
	}

	// metrics and healthcheck are deliberately not covered by any of the
	// middlewares above - we do not want to log those requests
	http.Handle("/", handler)
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/healthcheck", http.HandlerFunc(healthCheckHandler))

	logg.Info("listening on " + cfg.ListenAddress)
	err := httpee.ListenAndServeContext(httpee.ContextWithSIGINT(context.Background(), 10*time.Second), cfg.ListenAddress, nil)
	if err != nil {
		logg.Error(err.Error())
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Path == "/healthcheck" && r.Method == "GET" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	} else {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found")) //nolint:errcheck
	}
}

// runInteractiveTickShell is a debug shell that reads one InstanceSnapshot
// as JSON per line from stdin and runs a tick for it, mirroring the
// teacher's runAssetTypeTestShell.
func runInteractiveTickShell(orchestrator *core.Orchestrator, storeFactory core.StateStoreFactory) {
	adapter := directingress.NewAdapter(orchestrator, storeFactory)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snapshot core.InstanceSnapshot
		if err := json.Unmarshal(line, &snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "invalid snapshot: %s\n", err.Error())
			continue
		}
		if err := adapter.Tick(context.Background(), snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "tick failed: %s\n", err.Error())
		} else {
			fmt.Println("ok")
		}
	}
}
