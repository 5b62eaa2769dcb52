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

// Package eventbus is the Downstream Emitter (component H): it publishes
// DownstreamEvents to a message bus topic. Emission is always best-effort;
// nothing in this package can fail a tick (§4.H, §7 item 6).
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/dbautoscaler/internal/core"
)

type publishJob struct {
	Name  core.EventName
	Topic string
	Event core.DownstreamEvent
}

// AMQPEmitter holds a buffered channel of pending events and a background
// goroutine that publishes them to the exchange named by each event's
// topic, reconnecting on failure. This is the same
// channel-plus-goroutine-plus-callback shape as the teacher's
// audittools.AuditTrail.Commit.
type AMQPEmitter struct {
	jobs chan publishJob

	OnPublished func()
	OnFailed    func()
}

var _ core.EventEmitter = (*AMQPEmitter)(nil)

// StartAMQPEmitter dials amqpURI and starts the publish loop, returning
// immediately; the connection itself (and any reconnects) happen in the
// background. onPublished/onFailed are invoked once per event and are
// typically wired to the Counters Facade.
func StartAMQPEmitter(ctx context.Context, amqpURI string, onPublished, onFailed func()) *AMQPEmitter {
	e := &AMQPEmitter{
		jobs:        make(chan publishJob, 20),
		OnPublished: onPublished,
		OnFailed:    onFailed,
	}
	go e.run(ctx, amqpURI)
	return e
}

// Emit implements core.EventEmitter. It never blocks the caller for longer
// than it takes to enqueue: if the channel is full (the broker is
// unreachable for a sustained period), the event is dropped and logged
// rather than stalling the orchestrator.
func (e *AMQPEmitter) Emit(ctx context.Context, name core.EventName, topic string, event core.DownstreamEvent) {
	job := publishJob{Name: name, Topic: topic, Event: event}
	select {
	case e.jobs <- job:
	default:
		logg.Error("downstream event channel is full, dropping %s event for instance %s in project %s",
			name, event.InstanceID, event.ProjectID)
		if e.OnFailed != nil {
			e.OnFailed()
		}
	}
}

func (e *AMQPEmitter) run(ctx context.Context, amqpURI string) {
	var (
		conn *amqp.Connection
		ch   *amqp.Channel
	)
	defer func() {
		if ch != nil {
			ch.Close()
		}
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.jobs:
			var err error
			conn, ch, err = e.ensureConnected(amqpURI, conn, ch)
			if err != nil {
				logg.Error("could not connect to AMQP broker to publish %s event: %s", job.Name, err.Error())
				if e.OnFailed != nil {
					e.OnFailed()
				}
				continue
			}
			if err := e.publish(ch, job); err != nil {
				logg.Error("could not publish %s event for instance %s in project %s: %s",
					job.Name, job.Event.InstanceID, job.Event.ProjectID, err.Error())
				if e.OnFailed != nil {
					e.OnFailed()
				}
				// force a reconnect on the next job
				ch = nil
				conn = nil
				continue
			}
			if e.OnPublished != nil {
				e.OnPublished()
			}
		}
	}
}

func (e *AMQPEmitter) ensureConnected(amqpURI string, conn *amqp.Connection, ch *amqp.Channel) (*amqp.Connection, *amqp.Channel, error) {
	if conn != nil && !conn.IsClosed() && ch != nil {
		return conn, ch, nil
	}
	conn, err := amqp.DialConfig(amqpURI, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, nil, err
	}
	ch, err = conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func (e *AMQPEmitter) publish(ch *amqp.Channel, job publishJob) error {
	if err := ch.ExchangeDeclare(job.Topic, "fanout", true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(job.Event)
	if err != nil {
		return err
	}

	return ch.Publish(job.Topic, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
		Type:        string(job.Name),
	})
}
