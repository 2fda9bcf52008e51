package models

import "time"

// UserFace points at the enrolled biometric artifacts in object storage.
type UserFace struct {
	IDBiometrik   string    `json:"id_biometrik"`
	IDUser        string    `json:"id_user"`
	EmbeddingPath string    `json:"embedding_path"`
	FotoReferensi string    `json:"foto_referensi"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
