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

// Package busingress is ingress adapter (a) from §6: an instance snapshot
// arrives as a base64-encoded JSON payload on a message bus envelope.
// Semantics are identical to the other two adapters; only deserialization
// differs.
package busingress

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// Consumer runs a worker-goroutine pool (configurable size), one Tick per
// message, with no shared state across goroutines beyond the
// *core.Orchestrator value itself (§5) — this mirrors the teacher's
// `go queuedJobLoop(...)` fan-out in main.go, adapted from a DB-poll loop
// to a message-consume loop.
type Consumer struct {
	Orchestrator *core.Orchestrator
	StoreFactory core.StateStoreFactory

	AMQPURI     string
	QueueName   string
	WorkerCount int

	// TimeNow is a dependency-injection slot for tests.
	TimeNow func() time.Time
}

// NewConsumer constructs a Consumer. A WorkerCount of 0 defaults to 4.
func NewConsumer(orchestrator *core.Orchestrator, storeFactory core.StateStoreFactory, amqpURI, queueName string, workerCount int) *Consumer {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Consumer{
		Orchestrator: orchestrator,
		StoreFactory: storeFactory,
		AMQPURI:      amqpURI,
		QueueName:    queueName,
		WorkerCount:  workerCount,
		TimeNow:      time.Now,
	}
}

// Run connects to the broker and consumes from QueueName until ctx is
// cancelled, fanning out deliveries across WorkerCount goroutines.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.AMQPURI, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return fmt.Errorf("could not connect to AMQP broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("could not open AMQP channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("could not declare queue %s: %w", c.QueueName, err)
	}

	deliveries, err := ch.Consume(c.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("could not start consuming from queue %s: %w", c.QueueName, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < c.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, deliveries)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	snapshot, err := decodeEnvelope(delivery.Body)
	if err != nil {
		logg.Error("could not decode message bus envelope: %s", err.Error())
		c.Orchestrator.Counters.RecordRequestOutcome(false)
		delivery.Nack(false, false) //nolint:errcheck
		return
	}

	store, err := c.StoreFactory(ctx, snapshot)
	if err != nil {
		logg.Error("could not construct state store for instance %s in project %s: %s", snapshot.InstanceID, snapshot.ProjectID, err.Error())
		delivery.Nack(false, true) //nolint:errcheck
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error("could not close state store for instance %s in project %s: %s", snapshot.InstanceID, snapshot.ProjectID, err.Error())
		}
	}()

	now := c.TimeNow().UnixMilli()
	if err := c.Orchestrator.Tick(ctx, store, snapshot, now); err != nil {
		logg.Error("tick failed for instance %s in project %s: %s", snapshot.InstanceID, snapshot.ProjectID, err.Error())
		core.CaptureTickError(snapshot, err)
		delivery.Nack(false, false) //nolint:errcheck
		return
	}

	delivery.Ack(false) //nolint:errcheck
}

// decodeEnvelope decodes a message bus envelope whose body is a
// base64-encoded JSON InstanceSnapshot (§6, ingress adapter (a)).
func decodeEnvelope(body []byte) (core.InstanceSnapshot, error) {
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(decoded, body)
	if err != nil {
		return core.InstanceSnapshot{}, fmt.Errorf("could not base64-decode message body: %w", err)
	}

	var snapshot core.InstanceSnapshot
	if err := json.Unmarshal(decoded[:n], &snapshot); err != nil {
		return core.InstanceSnapshot{}, fmt.Errorf("could not parse decoded message body as JSON: %w", err)
	}
	return snapshot, nil
}
