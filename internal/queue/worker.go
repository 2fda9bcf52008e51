// queue/worker.go

package queue

import (
	"context"
	"log"
	"time"
)

// Source is what the worker loop consumes; satisfied by *Queue.
type Source interface {
	Dequeue(ctx context.Context) (*Task, string, error)
	Ack(ctx context.Context, raw string) error
	Requeue(ctx context.Context, raw string) error
}

// Worker drains the queue and applies handle to each task. Terminal
// failures (bad input that will never succeed) are acked and logged;
// everything else is requeued for another attempt after a short backoff,
// so an outage (DB down, detector down) does not spin the consumer.
type Worker struct {
	source   Source
	handle   func(ctx context.Context, task Task) error
	terminal func(err error) bool
	backoff  time.Duration
}

func NewWorker(source Source, handle func(ctx context.Context, task Task) error, terminal func(err error) bool) *Worker {
	return &Worker{source: source, handle: handle, terminal: terminal, backoff: time.Second}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, raw, err := w.source.Dequeue(ctx)
		if err != nil {
			log.Printf("Dequeue failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}
		w.process(ctx, *task, raw)
	}
}

func (w *Worker) process(ctx context.Context, task Task, raw string) {
	err := w.handle(ctx, task)
	if err == nil {
		if ackErr := w.source.Ack(ctx, raw); ackErr != nil {
			log.Printf("Ack failed for %s task: %v", task.Type, ackErr)
		}
		return
	}
	if w.terminal != nil && w.terminal(err) {
		log.Printf("Dropping %s task for user %s: %v", task.Type, task.UserID, err)
		if ackErr := w.source.Ack(ctx, raw); ackErr != nil {
			log.Printf("Ack failed for %s task: %v", task.Type, ackErr)
		}
		return
	}
	log.Printf("Requeueing %s task for user %s: %v", task.Type, task.UserID, err)
	if reqErr := w.source.Requeue(ctx, raw); reqErr != nil {
		log.Printf("Requeue failed for %s task: %v", task.Type, reqErr)
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.backoff):
	}
}
