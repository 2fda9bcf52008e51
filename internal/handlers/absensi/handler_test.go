package absensi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraspatika/absensi_backend/internal/middleware"
	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/queue"
	"github.com/saraspatika/absensi_backend/internal/services/face"
)

type fakeVerifier struct {
	match bool
	score float64
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, userID string, _ []byte, metric face.Metric, threshold float64) (*face.VerifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &face.VerifyResult{
		UserID:    userID,
		Metric:    metric,
		Threshold: threshold,
		Score:     f.score,
		Match:     f.match,
	}, nil
}

type fakeQueue struct {
	tasks []queue.Task
	err   error
}

func (f *fakeQueue) Enqueue(_ context.Context, task queue.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeLokasi struct {
	known map[string]*models.Lokasi
}

func (f *fakeLokasi) ByID(_ context.Context, id string) (*models.Lokasi, error) {
	return f.known[id], nil
}

type fakeAbsensi struct {
	rec *models.Absensi
}

func (f *fakeAbsensi) LatestForUserOnDate(context.Context, string, string) (*models.Absensi, error) {
	return f.rec, nil
}

func newTestHandler(verifier *fakeVerifier, tasks *fakeQueue, absensi *fakeAbsensi) *Handler {
	return NewHandler(
		verifier,
		tasks,
		&fakeLokasi{known: map[string]*models.Lokasi{
			"lok-1": {IDLokasi: "lok-1", NamaLokasi: "Kantor Pusat", Radius: 100},
		}},
		absensi,
		face.MetricCosine,
		0.45,
		time.UTC,
	)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, withImage bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if withImage {
		part, err := writer.CreateFormFile("image", "selfie.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("not-a-real-jpeg"))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	return req.WithContext(ctx)
}

func TestCheckInAcceptsAndEnqueues(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true, score: 0.82}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", map[string]string{
		"location_id": "lok-1",
		"lat":         "-8.65",
		"lng":         "115.21",
		"captured_at": "2025-03-10T07:55:00Z",
	}, true)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tasks.tasks, 1)

	task := tasks.tasks[0]
	assert.Equal(t, queue.TaskCheckIn, task.Type)
	assert.Equal(t, "user-1", task.UserID)
	assert.Equal(t, "2025-03-10", task.TodayLocal)
	assert.Equal(t, "2025-03-10T07:55:00Z", task.NowLocalISO)
	assert.NotEmpty(t, task.CorrelationID, "a correlation id is generated when the client omits one")
	assert.True(t, task.FaceVerified)
	require.NotNil(t, task.Location)
	assert.Equal(t, "lok-1", task.Location.ID)
	require.NotNil(t, task.Location.Lat)
	assert.InDelta(t, -8.65, *task.Location.Lat, 1e-9)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, task.CorrelationID, resp["correlation_id"])
}

func TestCheckInKeepsClientCorrelationID(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", map[string]string{
		"correlation_id": "client-corr-7",
	}, true)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tasks.tasks, 1)
	assert.Equal(t, "client-corr-7", tasks.tasks[0].CorrelationID)
}

func TestCheckInRejectsFaceMismatch(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: false, score: 0.12}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", nil, true)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, tasks.tasks, "a rejected face must not reach the queue")
}

func TestCheckInUnenrolledUser(t *testing.T) {
	h := newTestHandler(&fakeVerifier{err: face.ErrProfileNotFound}, &fakeQueue{}, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", nil, true)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckInUnknownLocation(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", map[string]string{
		"location_id": "lok-missing",
	}, true)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, tasks.tasks)
}

func TestCheckInMissingPhoto(t *testing.T) {
	h := newTestHandler(&fakeVerifier{match: true}, &fakeQueue{}, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-in", nil, false)
	rec := httptest.NewRecorder()
	h.CheckInHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckOutCarriesAbsensiID(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-out", map[string]string{
		"absensi_id": "abs-42",
	}, true)
	rec := httptest.NewRecorder()
	h.CheckOutHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tasks.tasks, 1)
	assert.Equal(t, queue.TaskCheckOut, tasks.tasks[0].Type)
	assert.Equal(t, "abs-42", tasks.tasks[0].AbsensiID)
	assert.Empty(t, tasks.tasks[0].CorrelationID, "check-out must not fabricate a correlation id")
}

func TestCheckOutByCorrelationIDOnly(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-out", map[string]string{
		"correlation_id": "corr-9",
	}, true)
	rec := httptest.NewRecorder()
	h.CheckOutHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tasks.tasks, 1)
	assert.Equal(t, "corr-9", tasks.tasks[0].CorrelationID)
	assert.Empty(t, tasks.tasks[0].AbsensiID)
}

func TestCheckOutWithoutTargetRejected(t *testing.T) {
	tasks := &fakeQueue{}
	h := newTestHandler(&fakeVerifier{match: true}, tasks, &fakeAbsensi{})

	req := multipartRequest(t, "/api/absensi/check-out", nil, true)
	rec := httptest.NewRecorder()
	h.CheckOutHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, tasks.tasks, "an unresolvable check-out must never reach the queue")
}

func TestStatusReturnsRecord(t *testing.T) {
	status := models.StatusTepat
	h := newTestHandler(&fakeVerifier{}, &fakeQueue{}, &fakeAbsensi{rec: &models.Absensi{
		IDAbsensi:   "abs-1",
		IDUser:      "user-1",
		StatusMasuk: &status,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/absensi/status?date=2025-03-10", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Date    string          `json:"date"`
		Absensi *models.Absensi `json:"absensi"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-03-10", resp.Date)
	require.NotNil(t, resp.Absensi)
	assert.Equal(t, "abs-1", resp.Absensi.IDAbsensi)
}

func TestStatusNoRecordYet(t *testing.T) {
	h := newTestHandler(&fakeVerifier{}, &fakeQueue{}, &fakeAbsensi{})

	req := httptest.NewRequest(http.MethodGet, "/api/absensi/status", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["absensi"])
}
