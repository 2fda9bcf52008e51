// handlers/face/handler.go
package face

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/saraspatika/absensi_backend/internal/middleware"
	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/queue"
	faceservice "github.com/saraspatika/absensi_backend/internal/services/face"
	"github.com/saraspatika/absensi_backend/internal/services/storage"
)

const maxUploadBytes = 32 << 20

type Verifier interface {
	Verify(ctx context.Context, userID string, probe []byte, metric faceservice.Metric, threshold float64) (*faceservice.VerifyResult, error)
	DeleteUserData(ctx context.Context, userID string) error
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

type FaceStore interface {
	ByUser(ctx context.Context, userID string) (*models.UserFace, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	matcher   Verifier
	store     storage.ObjectStore
	tasks     TaskQueue
	faces     FaceStore
	users     UserStore
	metric    faceservice.Metric
	threshold float64
}

func NewHandler(matcher Verifier, store storage.ObjectStore, tasks TaskQueue, faces FaceStore, users UserStore, metric faceservice.Metric, threshold float64) *Handler {
	return &Handler{
		matcher:   matcher,
		store:     store,
		tasks:     tasks,
		faces:     faces,
		users:     users,
		metric:    metric,
		threshold: threshold,
	}
}

// EnrollHandler stages the uploaded photos in object storage and queues
// the embedding work; detection and the mean-embedding computation happen
// on the worker.
func (h *Handler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	if target := r.FormValue("user_id"); target != "" {
		userID = target
	}
	exists, err := h.users.Exists(r.Context(), userID)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		response.RespondWithError(w, http.StatusNotFound, "User tidak ditemukan")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		response.RespondWithError(w, http.StatusBadRequest, "Minimal satu foto wajib diunggah")
		return
	}

	var keys []string
	for i, header := range r.MultipartForm.File["images"] {
		file, err := header.Open()
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Gagal membaca foto")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Gagal membaca foto")
			return
		}

		key := fmt.Sprintf("face_detection/%s/incoming/%s_%d.jpg", userID, uuid.NewString(), i)
		if err := h.store.Put(r.Context(), key, data, "image/jpeg"); err != nil {
			log.Printf("Failed to stage enrollment photo for %s: %v", userID, err)
			response.RespondWithError(w, http.StatusInternalServerError, "Gagal menyimpan foto")
			return
		}
		keys = append(keys, key)
	}

	task := queue.Task{
		Type:      queue.TaskEnroll,
		UserID:    userID,
		ImageKeys: keys,
	}
	if err := h.tasks.Enqueue(r.Context(), task); err != nil {
		log.Printf("Failed to enqueue enrollment for %s: %v", userID, err)
		response.RespondWithError(w, http.StatusInternalServerError, "Gagal memproses pendaftaran wajah")
		return
	}

	response.Ok(w, http.StatusAccepted, map[string]interface{}{
		"message":     "Pendaftaran wajah sedang diproses",
		"image_count": len(keys),
	})
}

// VerifyHandler scores a photo against the caller's enrolled face without
// touching attendance. Used by clients as a pre-flight check.
func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Foto wajib diunggah")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Gagal membaca foto")
		return
	}

	result, err := h.matcher.Verify(r.Context(), userID, image, h.metric, h.threshold)
	if err != nil {
		switch {
		case errors.Is(err, faceservice.ErrProfileNotFound):
			response.Err(w, http.StatusNotFound, "Wajah belum terdaftar")
		case errors.Is(err, faceservice.ErrNoFaceDetected):
			response.Err(w, http.StatusBadRequest, "Wajah tidak terdeteksi pada foto")
		case errors.Is(err, faceservice.ErrDecode):
			response.Err(w, http.StatusBadRequest, "Format foto tidak didukung")
		default:
			log.Printf("Face verification failed for %s: %v", userID, err)
			response.Err(w, http.StatusServiceUnavailable, "Layanan verifikasi wajah tidak tersedia")
		}
		return
	}

	response.Ok(w, http.StatusOK, map[string]interface{}{
		"match":     result.Match,
		"score":     result.Score,
		"metric":    string(result.Metric),
		"threshold": result.Threshold,
	})
}

// StatusHandler reports whether a face is enrolled for the caller (or the
// user_id query parameter). Clients poll it after the enroll 202.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			userID = id
		}
	}
	if userID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	userFace, err := h.faces.ByUser(r.Context(), userID)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if userFace == nil {
		response.Ok(w, http.StatusOK, map[string]interface{}{
			"enrolled": false,
		})
		return
	}
	response.Ok(w, http.StatusOK, map[string]interface{}{
		"enrolled":       true,
		"foto_referensi": userFace.FotoReferensi,
		"updated_at":     userFace.UpdatedAt,
	})
}

// DeleteHandler removes a user's biometric data: stored photos, embedding
// and the database row.
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			userID = id
		}
	}
	if userID == "" {
		response.RespondWithError(w, http.StatusBadRequest, "user_id wajib diisi")
		return
	}

	if err := h.matcher.DeleteUserData(r.Context(), userID); err != nil {
		log.Printf("Failed to delete face objects for %s: %v", userID, err)
		response.RespondWithError(w, http.StatusInternalServerError, "Gagal menghapus data wajah")
		return
	}
	if err := h.faces.DeleteByUser(r.Context(), userID); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	response.Ok(w, http.StatusOK, map[string]interface{}{
		"message": "Data wajah dihapus",
	})
}
