// repositories/shift_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/saraspatika/absensi_backend/internal/models"
)

type ShiftRepository struct {
	db *sql.DB
}

func NewShiftRepository(db *sql.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// ForUserOnDate loads the user's shift assignment for a calendar date,
// joined with its work pattern. Returns nil when no shift is scheduled.
func (r *ShiftRepository) ForUserOnDate(ctx context.Context, userID string, date time.Time) (*models.JadwalShift, error) {
	query := `
		SELECT j.id_jadwal_shift, j.id_user, j.id_pola_kerja, j.tanggal,
		       p.id_pola_kerja, p.nama_pola_kerja,
		       to_char(p.jam_mulai_kerja, 'HH24:MI:SS'),
		       to_char(p.jam_selesai_kerja, 'HH24:MI:SS')
		FROM jadwal_shift_kerja j
		JOIN pola_jam_kerja p ON p.id_pola_kerja = j.id_pola_kerja
		WHERE j.id_user = $1 AND DATE(j.tanggal) = $2
		LIMIT 1
	`
	var jadwal models.JadwalShift
	var pola models.PolaJamKerja
	err := r.db.QueryRowContext(ctx, query, userID, date.Format("2006-01-02")).Scan(
		&jadwal.IDJadwalShift, &jadwal.IDUser, &jadwal.IDPolaKerja, &jadwal.Tanggal,
		&pola.IDPolaKerja, &pola.NamaPolaKerja, &pola.JamMulaiKerja, &pola.JamSelesaiKerja,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	jadwal.Pola = &pola
	return &jadwal, nil
}

// UpsertForDate creates or replaces a user's assignment on a date. Used by
// the bulk import.
func (r *ShiftRepository) UpsertForDate(ctx context.Context, userID, polaID string, date time.Time) error {
	query := `
		INSERT INTO jadwal_shift_kerja (id_jadwal_shift, id_user, id_pola_kerja, tanggal)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT uq_user_tanggal
		DO UPDATE SET id_pola_kerja = EXCLUDED.id_pola_kerja
	`
	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, polaID, date)
	return err
}

// PolaByName resolves a work pattern by its unique name.
func (r *ShiftRepository) PolaByName(ctx context.Context, name string) (*models.PolaJamKerja, error) {
	query := `
		SELECT id_pola_kerja, nama_pola_kerja,
		       to_char(jam_mulai_kerja, 'HH24:MI:SS'),
		       to_char(jam_selesai_kerja, 'HH24:MI:SS')
		FROM pola_jam_kerja
		WHERE nama_pola_kerja = $1
	`
	var pola models.PolaJamKerja
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&pola.IDPolaKerja, &pola.NamaPolaKerja, &pola.JamMulaiKerja, &pola.JamSelesaiKerja,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pola, nil
}
