package face

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
	faceservice "github.com/saraspatika/absensi_backend/internal/services/face"
)

type fakeMatcher struct {
	result  *faceservice.VerifyResult
	err     error
	deleted []string
}

func (f *fakeMatcher) Verify(_ context.Context, userID string, _ []byte, metric faceservice.Metric, threshold float64) (*faceservice.VerifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &faceservice.VerifyResult{UserID: userID, Metric: metric, Threshold: threshold}, nil
}

func (f *fakeMatcher) DeleteUserData(_ context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

type memObjectStore struct {
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	return s.objects[key], nil
}

func (s *memObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range s.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *memObjectStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type fakeTasks struct {
	tasks []queue.Task
}

func (f *fakeTasks) Enqueue(_ context.Context, task queue.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeFaces struct {
	byUser  map[string]*models.UserFace
	deleted []string
}

func (f *fakeFaces) ByUser(_ context.Context, userID string) (*models.UserFace, error) {
	return f.byUser[userID], nil
}

func (f *fakeFaces) DeleteByUser(_ context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeUsers struct {
	known map[string]bool
}

func (f *fakeUsers) Exists(_ context.Context, id string) (bool, error) {
	return f.known[id], nil
}

func enrollRequest(t *testing.T, fields map[string]string, imageCount int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i := 0; i < imageCount; i++ {
		part, err := writer.CreateFormFile("images", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/face/enroll", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	return req.WithContext(ctx)
}

func newFaceTestHandler(tasks *fakeTasks, faces *fakeFaces, users *fakeUsers, store *memObjectStore) *Handler {
	return NewHandler(&fakeMatcher{}, store, tasks, faces, users, faceservice.MetricCosine, 0.45)
}

func TestEnrollStagesAndQueues(t *testing.T) {
	tasks := &fakeTasks{}
	store := newMemObjectStore()
	h := newFaceTestHandler(tasks, &fakeFaces{}, &fakeUsers{known: map[string]bool{"user-1": true}}, store)

	rec := httptest.NewRecorder()
	h.EnrollHandler(rec, enrollRequest(t, nil, 2))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tasks.tasks, 1)
	task := tasks.tasks[0]
	assert.Equal(t, queue.TaskEnroll, task.Type)
	assert.Equal(t, "user-1", task.UserID)
	require.Len(t, task.ImageKeys, 2)
	for _, key := range task.ImageKeys {
		assert.Contains(t, store.objects, key, "staged photo must exist before the task is queued")
	}
}

func TestEnrollUnknownTargetUser(t *testing.T) {
	tasks := &fakeTasks{}
	h := newFaceTestHandler(tasks, &fakeFaces{}, &fakeUsers{known: map[string]bool{"user-1": true}}, newMemObjectStore())

	rec := httptest.NewRecorder()
	h.EnrollHandler(rec, enrollRequest(t, map[string]string{"user_id": "ghost"}, 1))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, tasks.tasks)
}

func TestEnrollWithoutImages(t *testing.T) {
	h := newFaceTestHandler(&fakeTasks{}, &fakeFaces{}, &fakeUsers{known: map[string]bool{"user-1": true}}, newMemObjectStore())

	rec := httptest.NewRecorder()
	h.EnrollHandler(rec, enrollRequest(t, nil, 0))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEnrolled(t *testing.T) {
	faces := &fakeFaces{byUser: map[string]*models.UserFace{
		"user-1": {
			IDBiometrik:   "bio-1",
			IDUser:        "user-1",
			EmbeddingPath: "face_detection/user-1/embedding.json",
			FotoReferensi: "face_detection/user-1/baseline_1_1.jpg",
			UpdatedAt:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		},
	}}
	h := newFaceTestHandler(&fakeTasks{}, faces, &fakeUsers{}, newMemObjectStore())

	req := httptest.NewRequest(http.MethodGet, "/api/face/status", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["enrolled"])
	assert.Equal(t, "face_detection/user-1/baseline_1_1.jpg", resp["foto_referensi"])
}

func TestStatusNotEnrolled(t *testing.T) {
	h := newFaceTestHandler(&fakeTasks{}, &fakeFaces{}, &fakeUsers{}, newMemObjectStore())

	req := httptest.NewRequest(http.MethodGet, "/api/face/status", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "user-1")
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["enrolled"])
}

func TestDeleteRemovesStorageAndRow(t *testing.T) {
	matcher := &fakeMatcher{}
	faces := &fakeFaces{}
	h := NewHandler(matcher, newMemObjectStore(), &fakeTasks{}, faces, &fakeUsers{}, faceservice.MetricCosine, 0.45)

	req := httptest.NewRequest(http.MethodDelete, "/api/face?user_id=user-9", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "admin-1")
	rec := httptest.NewRecorder()
	h.DeleteHandler(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user-9"}, matcher.deleted)
	assert.Equal(t, []string{"user-9"}, faces.deleted)
}
