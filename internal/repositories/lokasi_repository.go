// repositories/lokasi_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/saraspatika/absensi_backend/internal/models"
)

type LokasiRepository struct {
	db *sql.DB
}

func NewLokasiRepository(db *sql.DB) *LokasiRepository {
	return &LokasiRepository{db: db}
}

// ByID loads a location, or nil when it does not exist.
func (r *LokasiRepository) ByID(ctx context.Context, id string) (*models.Lokasi, error) {
	query := `
		SELECT id_lokasi, nama_lokasi, latitude, longitude, radius
		FROM lokasi
		WHERE id_lokasi = $1
	`
	var l models.Lokasi
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&l.IDLokasi, &l.NamaLokasi, &l.Latitude, &l.Longitude, &l.Radius,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
