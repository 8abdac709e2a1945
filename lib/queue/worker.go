package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yliang52/newsfeed_service/lib/newsfeed"
)

// Worker consumes fan-out batch tasks. Delivery is at-least-once: a task is
// acked only after its bulk write and cache pushes ran, anything else is
// naked back for redelivery. AckWait doubles as the per-task execution
// ceiling; a worker that stalls past it loses the task to another worker.
type Worker struct {
	nc        *nats.Conn
	service   *newsfeed.Service
	timeLimit time.Duration

	sub *nats.Subscription
}

func NewWorker(nc *nats.Conn, service *newsfeed.Service, timeLimit time.Duration) *Worker {
	return &Worker{nc: nc, service: service, timeLimit: timeLimit}
}

func (w *Worker) Start() error {
	js, err := w.nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	sub, err := js.QueueSubscribe(
		SubjectFanout,
		DurableName,
		w.handle,
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(w.timeLimit),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectFanout, err)
	}

	w.sub = sub
	slog.Info("fan-out worker started", "subject", SubjectFanout)
	return nil
}

func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

func (w *Worker) handle(msg *nats.Msg) {
	var task newsfeed.BatchTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		// A malformed task never becomes valid, drop it.
		slog.Error("invalid fan-out task", "error", err)
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeLimit)
	defer cancel()

	if err := w.service.FanOutBatch(ctx, task); err != nil {
		slog.Error("fan-out batch failed",
			"content_id", task.ContentID,
			"batch_size", len(task.FollowerIDs),
			"error", err,
		)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}
