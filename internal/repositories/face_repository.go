// repositories/face_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/saraspatika/absensi_backend/internal/models"
)

type FaceRepository struct {
	db *sql.DB
}

func NewFaceRepository(db *sql.DB) *FaceRepository {
	return &FaceRepository{db: db}
}

func (r *FaceRepository) ByUser(ctx context.Context, userID string) (*models.UserFace, error) {
	query := `
		SELECT id_biometrik, id_user, embedding_path, foto_referensi, created_at, updated_at
		FROM user_face
		WHERE id_user = $1
	`
	var f models.UserFace
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&f.IDBiometrik, &f.IDUser, &f.EmbeddingPath, &f.FotoReferensi, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Upsert records where a user's embedding and reference photo live.
func (r *FaceRepository) Upsert(ctx context.Context, userID, embeddingPath, fotoReferensi string) error {
	query := `
		INSERT INTO user_face (id_biometrik, id_user, embedding_path, foto_referensi)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id_user)
		DO UPDATE SET embedding_path = EXCLUDED.embedding_path,
		              foto_referensi = EXCLUDED.foto_referensi,
		              updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, embeddingPath, fotoReferensi)
	return err
}

func (r *FaceRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_face WHERE id_user = $1`, userID)
	return err
}
