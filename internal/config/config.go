/******************************************************************************
*
*  Copyright 2020 SAP SE
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

// Package config is the process-level configuration that cmd/autoscaler
// reads at startup. None of it is read by internal/core: every field that
// the core needs varies per snapshot and travels on the snapshot itself
// (§6 "no global configuration is read by the core").
package config

import (
	"fmt"
	"os"

	"github.com/sapcc/go-bits/osext"
	"gopkg.in/yaml.v2"
)

// Config contains everything that cmd/autoscaler needs to wire up its
// ingress adapters and component implementations, loaded from a YAML file
// plus a handful of environment variables for secrets.
type Config struct {
	// ListenAddress is where the HTTP ingress adapter and the
	// Prometheus/healthcheck endpoints are served.
	ListenAddress string `yaml:"listen_address"`

	// ResizeAPIBaseURL is the base URL of the resize/operation-status API
	// that internal/resizeapi.Client talks to.
	ResizeAPIBaseURL string `yaml:"resize_api_base_url"`

	// StepwisePercent configures the default STEPWISE sizing strategy.
	StepwisePercent uint64 `yaml:"stepwise_percent"`

	// BusIngress configures the message-bus ingress adapter. Nil disables
	// it (only the HTTP and in-process adapters are then available).
	BusIngress *BusIngressConfig `yaml:"bus_ingress"`
}

// BusIngressConfig configures internal/ingress/busingress.
type BusIngressConfig struct {
	AMQPURI      string `yaml:"amqp_uri"`
	QueueName    string `yaml:"queue_name"`
	WorkerCount  int    `yaml:"worker_count"`
}

// Secrets holds values that are never written to the YAML config file and
// are only ever read from the environment, mirroring the teacher's
// CASTELLUM_SENTRY_DSN / CASTELLUM_AUDIT_SILENT env-var conventions.
type Secrets struct {
	// PostgresURL is the State Store Adapter's Postgres DSN.
	PostgresURL string
	// DownstreamAMQPURI is the Downstream Emitter's broker URI. Empty
	// disables AMQP publishing in favor of eventbus.NullEmitter.
	DownstreamAMQPURI string
	// SentryDSN enables best-effort error telemetry when non-empty.
	SentryDSN string
}

// Load reads the YAML configuration file at path.
func Load(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	err = yaml.UnmarshalStrict(buf, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("could not parse %s: %w", path, err)
	}

	if cfg.StepwisePercent == 0 {
		cfg.StepwisePercent = 10
	}
	if cfg.BusIngress != nil && cfg.BusIngress.WorkerCount == 0 {
		cfg.BusIngress.WorkerCount = 4
	}

	return cfg, nil
}

// LoadSecretsFromEnv reads Secrets from the environment.
// AUTOSCALER_POSTGRES_URL is required (and terminates the process via
// osext.MustGetenv if absent); the others are optional.
func LoadSecretsFromEnv() Secrets {
	return Secrets{
		PostgresURL:       osext.MustGetenv("AUTOSCALER_POSTGRES_URL"),
		DownstreamAMQPURI: os.Getenv("AUTOSCALER_DOWNSTREAM_AMQP_URI"),
		SentryDSN:         os.Getenv("AUTOSCALER_SENTRY_DSN"),
	}
}

// DebugLoggingEnabled mirrors the teacher's CASTELLUM_DEBUG convention.
func DebugLoggingEnabled() bool {
	return osext.GetenvBool("AUTOSCALER_DEBUG")
}
