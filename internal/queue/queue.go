// Package queue carries attendance work from the API process to the
// worker over a Redis list. Tasks are moved to a processing list while in
// flight and removed only after an ack, so a crashed worker loses nothing.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tasksKey      = "absensi:tasks"
	processingKey = "absensi:tasks:processing"
)

const (
	TaskCheckIn     = "checkin"
	TaskCheckOut    = "checkout"
	TaskEnroll      = "enroll"
	TaskHealthcheck = "healthcheck"
)

type Location struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

// Task is the queue payload. Times are client local: TodayLocal is the
// calendar date (2006-01-02) and NowLocalISO the full RFC 3339 timestamp
// the event was captured at.
type Task struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	TodayLocal    string    `json:"today_local,omitempty"`
	NowLocalISO   string    `json:"now_local_iso,omitempty"`
	Location      *Location `json:"location,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	AbsensiID     string    `json:"absensi_id,omitempty"`
	FaceVerified  bool      `json:"face_verified,omitempty"`
	ImageKeys     []string  `json:"image_keys,omitempty"`
}

type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, tasksKey, data).Err()
}

// Dequeue blocks until a task is available and atomically moves it onto
// the processing list. The raw payload is returned alongside the decoded
// task; Ack and Requeue need it verbatim for LREM.
func (q *Queue) Dequeue(ctx context.Context) (*Task, string, error) {
	raw, err := q.rdb.BLMove(ctx, tasksKey, processingKey, "RIGHT", "LEFT", 5*time.Second).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// Undecodable payloads are dropped from the processing list so
		// they do not wedge the worker forever.
		q.rdb.LRem(ctx, processingKey, 1, raw)
		return nil, "", err
	}
	return &task, raw, nil
}

func (q *Queue) Ack(ctx context.Context, raw string) error {
	return q.rdb.LRem(ctx, processingKey, 1, raw).Err()
}

// Requeue puts a failed task at the back of the main list, behind any
// pending work, so a persistently failing task is not redelivered in a
// tight loop.
func (q *Queue) Requeue(ctx context.Context, raw string) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, raw)
	pipe.LPush(ctx, tasksKey, raw)
	_, err := pipe.Exec(ctx)
	return err
}

// ReclaimPending moves tasks stranded on the processing list by a previous
// crash back onto the main list. Call once at worker startup.
func (q *Queue) ReclaimPending(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.rdb.LMove(ctx, processingKey, tasksKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}
