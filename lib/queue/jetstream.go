// Package queue connects the fan-out pipeline to NATS JetStream. A work
// queue stream holds batch tasks; publishing is the enqueue side, the
// Worker is the consume side.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/yliang52/newsfeed_service/lib/newsfeed"
)

const (
	StreamName    = "NEWSFEEDS"
	SubjectFanout = "newsfeeds.fanout"
	DurableName   = "newsfeed-workers"

	// Redeliveries beyond this budget park the task; at that point it is an
	// operational problem, not something to keep retrying.
	maxDeliver = 5
)

type JetStreamQueue struct {
	js nats.JetStreamContext
}

func NewJetStreamQueue(nc *nats.Conn) (*JetStreamQueue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      StreamName,
			Subjects:  []string{SubjectFanout},
			Retention: nats.WorkQueuePolicy,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}

	return &JetStreamQueue{js: js}, nil
}

func (q *JetStreamQueue) Enqueue(ctx context.Context, task newsfeed.BatchTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = q.js.Publish(SubjectFanout, data, nats.Context(ctx))
	return err
}
