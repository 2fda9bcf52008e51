// repositories/absensi_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/saraspatika/absensi_backend/internal/models"
)

// pqUniqueViolation is the Postgres error code for a unique constraint hit.
const pqUniqueViolation = "23505"

// InsertStatus tags the outcome of an attendance insert.
type InsertStatus int

const (
	// StatusInserted means a new row was written.
	StatusInserted InsertStatus = iota
	// StatusDuplicateCorrelation means the correlation id already had a
	// row; Existing carries the winner.
	StatusDuplicateCorrelation
)

// InsertResult is what InsertCheckIn reports back to the state machine.
type InsertResult struct {
	Status   InsertStatus
	Existing *models.Absensi
}

type AbsensiRepository struct {
	db *sql.DB
}

func NewAbsensiRepository(db *sql.DB) *AbsensiRepository {
	return &AbsensiRepository{db: db}
}

const absensiColumns = `
	id_absensi, id_user, id_jadwal_shift, correlation_id,
	id_lokasi_datang, id_lokasi_pulang,
	waktu_masuk, waktu_pulang,
	face_verified_masuk, face_verified_pulang,
	status_masuk, status_pulang,
	in_latitude, in_longitude, out_latitude, out_longitude`

func scanAbsensi(row interface{ Scan(...interface{}) error }) (*models.Absensi, error) {
	var rec models.Absensi
	err := row.Scan(
		&rec.IDAbsensi, &rec.IDUser, &rec.IDJadwalShift, &rec.CorrelationID,
		&rec.IDLokasiDatang, &rec.IDLokasiPulang,
		&rec.WaktuMasuk, &rec.WaktuPulang,
		&rec.FaceVerifiedMasuk, &rec.FaceVerifiedPulang,
		&rec.StatusMasuk, &rec.StatusPulang,
		&rec.InLatitude, &rec.InLongitude, &rec.OutLatitude, &rec.OutLongitude,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByCorrelationID returns the record bound to a correlation id, or nil
// when none exists.
func (r *AbsensiRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*models.Absensi, error) {
	query := `SELECT` + absensiColumns + ` FROM absensi WHERE correlation_id = $1`
	rec, err := scanAbsensi(r.db.QueryRowContext(ctx, query, correlationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *AbsensiRepository) GetByID(ctx context.Context, id string) (*models.Absensi, error) {
	query := `SELECT` + absensiColumns + ` FROM absensi WHERE id_absensi = $1`
	rec, err := scanAbsensi(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// InsertCheckIn writes a new attendance row. When the correlation id loses
// the race to a concurrent duplicate, the unique constraint fires; the
// winning row is re-read and returned tagged, so the caller decides between
// idempotent success and conflict without any application-level lock.
func (r *AbsensiRepository) InsertCheckIn(ctx context.Context, rec *models.Absensi) (*InsertResult, error) {
	query := `
		INSERT INTO absensi (
			id_absensi, id_user, id_jadwal_shift, correlation_id,
			id_lokasi_datang, waktu_masuk,
			face_verified_masuk, face_verified_pulang,
			status_masuk, in_latitude, in_longitude
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.IDAbsensi,
		rec.IDUser,
		rec.IDJadwalShift,
		rec.CorrelationID,
		rec.IDLokasiDatang,
		rec.WaktuMasuk,
		rec.FaceVerifiedMasuk,
		rec.FaceVerifiedPulang,
		rec.StatusMasuk,
		rec.InLatitude,
		rec.InLongitude,
	)
	if err == nil {
		return &InsertResult{Status: StatusInserted}, nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation || rec.CorrelationID == nil {
		return nil, err
	}

	existing, readErr := r.FindByCorrelationID(ctx, *rec.CorrelationID)
	if readErr != nil {
		return nil, readErr
	}
	if existing == nil {
		// The winner vanished between conflict and re-read; surface the
		// original constraint error and let the queue redeliver.
		return nil, err
	}
	return &InsertResult{Status: StatusDuplicateCorrelation, Existing: existing}, nil
}

// CheckOutUpdate carries the mutable checkout fields.
type CheckOutUpdate struct {
	WaktuPulang    time.Time
	IDLokasiPulang *string
	OutLatitude    *float64
	OutLongitude   *float64
	FaceVerified   bool
	StatusPulang   models.StatusAbsensi
}

// SetCheckOut completes a record. It only touches rows whose checkout is
// still unset, so a concurrent duplicate checkout cannot overwrite the
// first one.
func (r *AbsensiRepository) SetCheckOut(ctx context.Context, id string, upd CheckOutUpdate) error {
	query := `
		UPDATE absensi
		SET waktu_pulang = $2,
		    id_lokasi_pulang = $3,
		    out_latitude = $4,
		    out_longitude = $5,
		    face_verified_pulang = $6,
		    status_pulang = $7
		WHERE id_absensi = $1 AND waktu_pulang IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		id,
		upd.WaktuPulang,
		upd.IDLokasiPulang,
		upd.OutLatitude,
		upd.OutLongitude,
		upd.FaceVerified,
		upd.StatusPulang,
	)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("attendance record %s already checked out or missing", id)
	}
	return nil
}

// LatestForUserOnDate returns the newest record whose check-in falls on the
// given local date, or nil.
func (r *AbsensiRepository) LatestForUserOnDate(ctx context.Context, userID, date string) (*models.Absensi, error) {
	query := `SELECT` + absensiColumns + `
		FROM absensi
		WHERE id_user = $1 AND DATE(waktu_masuk) = $2
		ORDER BY waktu_masuk DESC
		LIMIT 1`
	rec, err := scanAbsensi(r.db.QueryRowContext(ctx, query, userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListBetween streams records for the recap export, oldest first.
func (r *AbsensiRepository) ListBetween(ctx context.Context, from, to string) ([]models.Absensi, error) {
	query := `SELECT` + absensiColumns + `
		FROM absensi
		WHERE DATE(waktu_masuk) BETWEEN $1 AND $2
		ORDER BY waktu_masuk ASC`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Absensi
	for rows.Next() {
		rec, err := scanAbsensi(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
