// handlers/absensi/handler.go
package absensi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saraspatika/absensi_backend/internal/middleware"
	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/queue"
	"github.com/saraspatika/absensi_backend/internal/services/face"
)

const maxUploadBytes = 10 << 20

type FaceVerifier interface {
	Verify(ctx context.Context, userID string, probe []byte, metric face.Metric, threshold float64) (*face.VerifyResult, error)
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

type LokasiStore interface {
	ByID(ctx context.Context, id string) (*models.Lokasi, error)
}

type AbsensiStore interface {
	LatestForUserOnDate(ctx context.Context, userID, date string) (*models.Absensi, error)
}

// Handler verifies the submitted face synchronously and hands persistence
// to the worker through the queue, mirroring what the mobile clients
// expect: a fast accept/reject on the face, eventual consistency on the
// record itself.
type Handler struct {
	verifier  FaceVerifier
	tasks     TaskQueue
	lokasi    LokasiStore
	absensi   AbsensiStore
	metric    face.Metric
	threshold float64
	tz        *time.Location
}

func NewHandler(verifier FaceVerifier, tasks TaskQueue, lokasi LokasiStore, absensi AbsensiStore, metric face.Metric, threshold float64, tz *time.Location) *Handler {
	return &Handler{
		verifier:  verifier,
		tasks:     tasks,
		lokasi:    lokasi,
		absensi:   absensi,
		metric:    metric,
		threshold: threshold,
		tz:        tz,
	}
}

func (h *Handler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, queue.TaskCheckIn, "Check-in sedang diproses")
}

func (h *Handler) CheckOutHandler(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, queue.TaskCheckOut, "Check-out sedang diproses")
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, taskType, acceptedMsg string) {
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

	locationID := r.FormValue("location_id")
	if locationID != "" {
		lokasi, err := h.lokasi.ByID(r.Context(), locationID)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if lokasi == nil {
			response.RespondWithError(w, http.StatusNotFound, "Lokasi tidak ditemukan")
			return
		}
	}

	correlationID := r.FormValue("correlation_id")
	absensiID := r.FormValue("absensi_id")
	switch taskType {
	case queue.TaskCheckIn:
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
	case queue.TaskCheckOut:
		// Without a target the worker could never resolve a record; the
		// task would be accepted and then dropped. Reject upfront.
		if absensiID == "" && correlationID == "" {
			response.Err(w, http.StatusBadRequest, "absensi_id atau correlation_id wajib diisi")
			return
		}
	}

	capturedAt := time.Now().In(h.tz)
	if raw := r.FormValue("captured_at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "captured_at harus RFC 3339")
			return
		}
		capturedAt = parsed.In(h.tz)
	}

	result, err := h.verifier.Verify(r.Context(), userID, image, h.metric, h.threshold)
	if err != nil {
		h.respondVerifyError(w, err)
		return
	}
	if !result.Match {
		response.Err(w, http.StatusUnauthorized, "Verifikasi wajah gagal")
		return
	}

	task := queue.Task{
		Type:          taskType,
		UserID:        userID,
		TodayLocal:    capturedAt.Format("2006-01-02"),
		NowLocalISO:   capturedAt.Format(time.RFC3339),
		CorrelationID: correlationID,
		FaceVerified:  true,
	}
	if locationID != "" {
		loc := &queue.Location{ID: locationID}
		if lat, err := strconv.ParseFloat(r.FormValue("lat"), 64); err == nil {
			loc.Lat = &lat
		}
		if lng, err := strconv.ParseFloat(r.FormValue("lng"), 64); err == nil {
			loc.Lng = &lng
		}
		task.Location = loc
	}
	if taskType == queue.TaskCheckOut {
		task.AbsensiID = absensiID
	}

	if err := h.tasks.Enqueue(r.Context(), task); err != nil {
		log.Printf("Failed to enqueue %s for user %s: %v", taskType, userID, err)
		response.RespondWithError(w, http.StatusInternalServerError, "Gagal memproses absensi")
		return
	}

	extra := map[string]interface{}{
		"message":    acceptedMsg,
		"face_score": result.Score,
	}
	if correlationID != "" {
		extra["correlation_id"] = correlationID
	}
	response.Ok(w, http.StatusAccepted, extra)
}

// StatusHandler returns the caller's attendance record for a local date
// (today by default), or null when nothing has been processed yet. Clients
// poll it after the 202 to learn the worker's outcome.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(h.tz).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "date harus YYYY-MM-DD")
		return
	}

	rec, err := h.absensi.LatestForUserOnDate(r.Context(), userID, date)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date,
		"absensi": rec,
	})
}

func (h *Handler) respondVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, face.ErrProfileNotFound):
		response.Err(w, http.StatusNotFound, "Wajah belum terdaftar")
	case errors.Is(err, face.ErrNoFaceDetected):
		response.Err(w, http.StatusBadRequest, "Wajah tidak terdeteksi pada foto")
	case errors.Is(err, face.ErrDecode):
		response.Err(w, http.StatusBadRequest, "Format foto tidak didukung")
	default:
		log.Printf("Face verification failed: %v", err)
		response.Err(w, http.StatusServiceUnavailable, "Layanan verifikasi wajah tidak tersedia")
	}
}
