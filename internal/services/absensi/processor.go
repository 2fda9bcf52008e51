// Package absensi holds the attendance state machine: the idempotent
// check-in/check-out processor that runs on the worker side of the queue.
package absensi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/repositories"
	"github.com/saraspatika/absensi_backend/internal/services/live"
)

var (
	// ErrCorrelationConflict means the correlation id is already bound to a
	// different user's record.
	ErrCorrelationConflict = errors.New("correlation id belongs to another user")
	// ErrRecordNotFound covers both a missing checkout target and one owned
	// by someone else; ownership is never leaked to the caller.
	ErrRecordNotFound = errors.New("attendance record not found")
)

// Store is the slice of the attendance repository the processor needs.
type Store interface {
	FindByCorrelationID(ctx context.Context, correlationID string) (*models.Absensi, error)
	GetByID(ctx context.Context, id string) (*models.Absensi, error)
	InsertCheckIn(ctx context.Context, rec *models.Absensi) (*repositories.InsertResult, error)
	SetCheckOut(ctx context.Context, id string, upd repositories.CheckOutUpdate) error
}

// ShiftSource resolves a user's shift assignment for a date; nil means no
// shift is scheduled.
type ShiftSource interface {
	ForUserOnDate(ctx context.Context, userID string, date time.Time) (*models.JadwalShift, error)
}

// EventSink receives processed attendance events for the live feed. It is
// optional; publish failures are logged, never fatal.
type EventSink interface {
	Publish(ctx context.Context, event live.Event) error
}

type CheckInInput struct {
	UserID        string
	Date          time.Time
	Timestamp     time.Time
	LocationID    *string
	Lat           *float64
	Lng           *float64
	CorrelationID *string
	FaceVerified  bool
}

type CheckOutInput struct {
	UserID        string
	AbsensiID     *string
	CorrelationID *string
	Timestamp     time.Time
	LocationID    *string
	Lat           *float64
	Lng           *float64
	FaceVerified  bool
}

// Result reports the record an operation resolved to. Idempotent is true
// when the submission was a replay of an already-processed event.
type Result struct {
	AbsensiID  string `json:"absensi_id"`
	Idempotent bool   `json:"idempotent"`
}

type Processor struct {
	store  Store
	shifts ShiftSource
	events EventSink
}

func NewProcessor(store Store, shifts ShiftSource, events EventSink) *Processor {
	return &Processor{store: store, shifts: shifts, events: events}
}

// CheckIn persists a check-in exactly once per correlation id. The fast
// path reads an existing record; the race between that read and the insert
// is closed by the unique constraint on correlation_id: on conflict the
// winning row is re-read and treated as an idempotent replay when it
// belongs to the same user.
func (p *Processor) CheckIn(ctx context.Context, in CheckInInput) (*Result, error) {
	if in.CorrelationID != nil && *in.CorrelationID != "" {
		existing, err := p.store.FindByCorrelationID(ctx, *in.CorrelationID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.IDUser != in.UserID {
				return nil, ErrCorrelationConflict
			}
			return &Result{AbsensiID: existing.IDAbsensi, Idempotent: true}, nil
		}
	}

	var jadwalID *string
	status := models.StatusTepat
	jadwal, err := p.shifts.ForUserOnDate(ctx, in.UserID, in.Date)
	if err != nil {
		return nil, fmt.Errorf("shift lookup failed: %w", err)
	}
	if jadwal != nil {
		jadwalID = &jadwal.IDJadwalShift
		if jadwal.Pola != nil && jadwal.Pola.JamMulaiKerja != "" {
			status = checkinStatus(in.Timestamp, jadwal.Pola.JamMulaiKerja)
		}
	}

	rec := &models.Absensi{
		IDAbsensi:         uuid.NewString(),
		IDUser:            in.UserID,
		IDJadwalShift:     jadwalID,
		CorrelationID:     normalizeCorrelation(in.CorrelationID),
		IDLokasiDatang:    in.LocationID,
		WaktuMasuk:        in.Timestamp,
		FaceVerifiedMasuk: in.FaceVerified,
		StatusMasuk:       &status,
		InLatitude:        in.Lat,
		InLongitude:       in.Lng,
	}

	inserted, err := p.store.InsertCheckIn(ctx, rec)
	if err != nil {
		return nil, err
	}

	switch inserted.Status {
	case repositories.StatusInserted:
		p.publish(ctx, "checkin", rec.IDAbsensi, in.UserID, string(status), in.Timestamp)
		return &Result{AbsensiID: rec.IDAbsensi}, nil
	case repositories.StatusDuplicateCorrelation:
		if inserted.Existing.IDUser != in.UserID {
			return nil, ErrCorrelationConflict
		}
		return &Result{AbsensiID: inserted.Existing.IDAbsensi, Idempotent: true}, nil
	default:
		return nil, fmt.Errorf("unexpected insert status %d", inserted.Status)
	}
}

// CheckOut completes a record resolved by id or by correlation id. A record
// that already has a checkout timestamp is reported as an idempotent replay
// without mutation.
func (p *Processor) CheckOut(ctx context.Context, in CheckOutInput) (*Result, error) {
	rec, err := p.resolveTarget(ctx, in)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.IDUser != in.UserID {
		return nil, ErrRecordNotFound
	}
	if rec.WaktuPulang != nil {
		return &Result{AbsensiID: rec.IDAbsensi, Idempotent: true}, nil
	}

	status := checkoutStatus()
	err = p.store.SetCheckOut(ctx, rec.IDAbsensi, repositories.CheckOutUpdate{
		WaktuPulang:    in.Timestamp,
		IDLokasiPulang: in.LocationID,
		OutLatitude:    in.Lat,
		OutLongitude:   in.Lng,
		FaceVerified:   in.FaceVerified,
		StatusPulang:   status,
	})
	if err != nil {
		return nil, err
	}

	p.publish(ctx, "checkout", rec.IDAbsensi, in.UserID, string(status), in.Timestamp)
	return &Result{AbsensiID: rec.IDAbsensi}, nil
}

func (p *Processor) resolveTarget(ctx context.Context, in CheckOutInput) (*models.Absensi, error) {
	if in.AbsensiID != nil && *in.AbsensiID != "" {
		return p.store.GetByID(ctx, *in.AbsensiID)
	}
	if in.CorrelationID != nil && *in.CorrelationID != "" {
		return p.store.FindByCorrelationID(ctx, *in.CorrelationID)
	}
	return nil, nil
}

// checkinStatus flags TERLAMBAT only when the event's time of day is
// strictly after the scheduled start.
func checkinStatus(event time.Time, startClock string) models.StatusAbsensi {
	start, err := time.Parse("15:04:05", startClock)
	if err != nil {
		log.Printf("Unparseable shift start %q, defaulting to TEPAT: %v", startClock, err)
		return models.StatusTepat
	}
	if secondsOfDay(event) > secondsOfDay(start) {
		return models.StatusTerlambat
	}
	return models.StatusTepat
}

// checkoutStatus always reports TEPAT; the scheduled end time is not
// consulted. Matches the behavior the mobile clients were built against.
func checkoutStatus() models.StatusAbsensi {
	return models.StatusTepat
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func normalizeCorrelation(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

// publish pushes the event to the live feed. Replays are not published;
// dashboards already saw the first delivery.
func (p *Processor) publish(ctx context.Context, kind, absensiID, userID, status string, at time.Time) {
	if p.events == nil {
		return
	}
	err := p.events.Publish(ctx, live.Event{
		Type:      kind,
		AbsensiID: absensiID,
		UserID:    userID,
		Status:    status,
		Waktu:     at,
	})
	if err != nil {
		log.Printf("Failed to publish %s event for %s: %v", kind, absensiID, err)
	}
}
