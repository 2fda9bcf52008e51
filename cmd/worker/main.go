package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/saraspatika/absensi_backend/config"
	"github.com/saraspatika/absensi_backend/db"
	"github.com/saraspatika/absensi_backend/internal/queue"
	"github.com/saraspatika/absensi_backend/internal/repositories"
	absensiService "github.com/saraspatika/absensi_backend/internal/services/absensi"
	"github.com/saraspatika/absensi_backend/internal/services/face"
	"github.com/saraspatika/absensi_backend/internal/services/live"
	"github.com/saraspatika/absensi_backend/internal/services/storage"
)

// errBadTask marks payloads that can never succeed; the worker acks and
// drops them instead of retrying.
var errBadTask = errors.New("malformed task")

type dispatcher struct {
	processor *absensiService.Processor
	matcher   *face.Matcher
	store     storage.ObjectStore
	faces     *repositories.FaceRepository
	tz        *time.Location
}

func main() {
	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	redisClient := config.NewRedisClient()
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3Store(ctx, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to init object storage: %v", err)
	}

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to UTC", cfg.Timezone)
		tz = time.UTC
	}

	d := &dispatcher{
		processor: absensiService.NewProcessor(
			repositories.NewAbsensiRepository(database),
			repositories.NewShiftRepository(database),
			live.NewPublisher(redisClient),
		),
		matcher: face.NewMatcher(face.NewHTTPDetector(cfg.FaceDetectorURL), store),
		store:   store,
		faces:   repositories.NewFaceRepository(database),
		tz:      tz,
	}

	q := queue.NewQueue(redisClient)
	if moved, err := q.ReclaimPending(ctx); err != nil {
		log.Printf("Failed to reclaim in-flight tasks: %v", err)
	} else if moved > 0 {
		log.Printf("Reclaimed %d in-flight tasks from a previous run", moved)
	}

	worker := queue.NewWorker(q, d.handle, isTerminal)
	log.Printf("Worker started with %d consumers", cfg.WorkerConcurrency)

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}
	wg.Wait()
	log.Println("Worker stopped")
}

func isTerminal(err error) bool {
	return errors.Is(err, errBadTask) ||
		errors.Is(err, absensiService.ErrCorrelationConflict) ||
		errors.Is(err, absensiService.ErrRecordNotFound) ||
		errors.Is(err, face.ErrNoFaceDetected) ||
		errors.Is(err, face.ErrDecode)
}

func (d *dispatcher) handle(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case queue.TaskCheckIn:
		return d.handleCheckIn(ctx, task)
	case queue.TaskCheckOut:
		return d.handleCheckOut(ctx, task)
	case queue.TaskEnroll:
		return d.handleEnroll(ctx, task)
	case queue.TaskHealthcheck:
		log.Printf("Healthcheck task received for user %q", task.UserID)
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", errBadTask, task.Type)
	}
}

func (d *dispatcher) handleCheckIn(ctx context.Context, task queue.Task) error {
	timestamp, date, err := d.taskTimes(task)
	if err != nil {
		return err
	}

	in := absensiService.CheckInInput{
		UserID:       task.UserID,
		Date:         date,
		Timestamp:    timestamp,
		FaceVerified: task.FaceVerified,
	}
	if task.CorrelationID != "" {
		in.CorrelationID = &task.CorrelationID
	}
	if task.Location != nil {
		in.LocationID = &task.Location.ID
		in.Lat = task.Location.Lat
		in.Lng = task.Location.Lng
	}

	result, err := d.processor.CheckIn(ctx, in)
	if err != nil {
		return err
	}
	if result.Idempotent {
		log.Printf("Check-in replay for user %s resolved to %s", task.UserID, result.AbsensiID)
	}
	return nil
}

func (d *dispatcher) handleCheckOut(ctx context.Context, task queue.Task) error {
	timestamp, _, err := d.taskTimes(task)
	if err != nil {
		return err
	}

	in := absensiService.CheckOutInput{
		UserID:       task.UserID,
		Timestamp:    timestamp,
		FaceVerified: task.FaceVerified,
	}
	if task.AbsensiID != "" {
		in.AbsensiID = &task.AbsensiID
	}
	if task.CorrelationID != "" {
		in.CorrelationID = &task.CorrelationID
	}
	if task.Location != nil {
		in.LocationID = &task.Location.ID
		in.Lat = task.Location.Lat
		in.Lng = task.Location.Lng
	}

	result, err := d.processor.CheckOut(ctx, in)
	if err != nil {
		return err
	}
	if result.Idempotent {
		log.Printf("Check-out replay for user %s resolved to %s", task.UserID, result.AbsensiID)
	}
	return nil
}

// handleEnroll pulls the staged photos out of object storage, computes the
// reference embedding and records where it lives.
func (d *dispatcher) handleEnroll(ctx context.Context, task queue.Task) error {
	if len(task.ImageKeys) == 0 {
		return fmt.Errorf("%w: enroll without image keys", errBadTask)
	}

	var images [][]byte
	for _, key := range task.ImageKeys {
		data, err := d.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: staged photo %s is gone", errBadTask, key)
		}
		if err != nil {
			return err
		}
		images = append(images, data)
	}

	result, err := d.matcher.Enroll(ctx, task.UserID, images)
	if err != nil {
		return err
	}

	fotoReferensi := ""
	if len(result.ImageKeys) > 0 {
		fotoReferensi = result.ImageKeys[0]
	}
	if err := d.faces.Upsert(ctx, task.UserID, result.EmbeddingPath, fotoReferensi); err != nil {
		return err
	}

	// The staged copies are no longer needed once baselines are written.
	for _, key := range task.ImageKeys {
		if err := d.store.Delete(ctx, key); err != nil {
			log.Printf("Failed to clean up staged photo %s: %v", key, err)
		}
	}

	log.Printf("Enrolled face for user %s from %d photos", task.UserID, len(images))
	return nil
}

// taskTimes parses the client-supplied capture time, falling back to the
// server clock when the payload predates the field.
func (d *dispatcher) taskTimes(task queue.Task) (time.Time, time.Time, error) {
	timestamp := time.Now().In(d.tz)
	if task.NowLocalISO != "" {
		parsed, err := time.Parse(time.RFC3339, task.NowLocalISO)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad now_local_iso %q", errBadTask, task.NowLocalISO)
		}
		timestamp = parsed.In(d.tz)
	}

	date := timestamp
	if task.TodayLocal != "" {
		parsed, err := time.ParseInLocation("2006-01-02", task.TodayLocal, d.tz)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad today_local %q", errBadTask, task.TodayLocal)
		}
		date = parsed
	}
	return timestamp, date, nil
}
