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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("could not write temp config: %s", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "listen_address: :8080\nresize_api_base_url: http://resize.local\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.StepwisePercent != 10 {
		t.Errorf("expected default stepwise_percent 10, got %d", cfg.StepwisePercent)
	}
	if cfg.ListenAddress != ":8080" || cfg.ResizeAPIBaseURL != "http://resize.local" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadHonorsExplicitStepwisePercent(t *testing.T) {
	path := writeTempConfig(t, "stepwise_percent: 25\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.StepwisePercent != 25 {
		t.Errorf("expected explicit stepwise_percent 25, got %d", cfg.StepwisePercent)
	}
}

func TestLoadDefaultsBusIngressWorkerCount(t *testing.T) {
	path := writeTempConfig(t, "bus_ingress:\n  amqp_uri: amqp://broker\n  queue_name: ticks\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.BusIngress == nil {
		t.Fatal("expected bus_ingress to be populated")
	}
	if cfg.BusIngress.WorkerCount != 4 {
		t.Errorf("expected default worker_count 4, got %d", cfg.BusIngress.WorkerCount)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, "not_a_real_field: true\n")

	_, err := Load(path)
	if err == nil {
		t.Error("expected strict unmarshalling to reject an unknown field")
	}
}

func TestLoadErrorsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestDebugLoggingEnabled(t *testing.T) {
	os.Unsetenv("AUTOSCALER_DEBUG") //nolint:errcheck
	if DebugLoggingEnabled() {
		t.Error("expected debug logging to default to disabled")
	}

	t.Setenv("AUTOSCALER_DEBUG", "true")
	if !DebugLoggingEnabled() {
		t.Error("expected debug logging to be enabled once AUTOSCALER_DEBUG=true")
	}
}

func TestLoadSecretsFromEnvReadsOptionalValues(t *testing.T) {
	t.Setenv("AUTOSCALER_POSTGRES_URL", "postgres://localhost/autoscaler")
	t.Setenv("AUTOSCALER_DOWNSTREAM_AMQP_URI", "amqp://broker")
	t.Setenv("AUTOSCALER_SENTRY_DSN", "")

	secrets := LoadSecretsFromEnv()
	if secrets.PostgresURL != "postgres://localhost/autoscaler" {
		t.Errorf("unexpected postgres url: %s", secrets.PostgresURL)
	}
	if secrets.DownstreamAMQPURI != "amqp://broker" {
		t.Errorf("unexpected downstream amqp uri: %s", secrets.DownstreamAMQPURI)
	}
	if secrets.SentryDSN != "" {
		t.Errorf("expected empty sentry dsn, got %s", secrets.SentryDSN)
	}
}
