package face

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/saraspatika/absensi_backend/internal/services/storage"
)

var (
	ErrDecode          = errors.New("failed to decode image")
	ErrNoFaceDetected  = errors.New("no face detected")
	ErrProfileNotFound = errors.New("face profile not found")
)

// maxBaselineFallback caps how many baseline photos are averaged when the
// stored embedding is missing.
const maxBaselineFallback = 3

// VerifyResult is the outcome of comparing a probe image against a user's
// enrolled face.
type VerifyResult struct {
	UserID    string  `json:"user_id"`
	Metric    Metric  `json:"metric"`
	Threshold float64 `json:"threshold"`
	Score     float64 `json:"score"`
	Match     bool    `json:"match"`
}

// EnrollResult reports what an enrollment run produced.
type EnrollResult struct {
	UserID        string   `json:"user_id"`
	ImageKeys     []string `json:"image_keys"`
	EmbeddingPath string   `json:"embedding_path"`
}

// Matcher decides whether a probe image belongs to a claimed identity.
// It only reads from the detector and the object store; persistence of
// enrollment metadata is the caller's concern.
type Matcher struct {
	detector Detector
	store    storage.ObjectStore
}

func NewMatcher(detector Detector, store storage.ObjectStore) *Matcher {
	return &Matcher{detector: detector, store: store}
}

func userRoot(userID string) string {
	return "face_detection/" + strings.TrimSpace(userID)
}

func embeddingKey(userID string) string {
	return userRoot(userID) + "/embedding.json"
}

// Verify decodes the probe, extracts its embedding, loads the user's
// reference embedding (reconstructing from baselines when missing) and
// scores the pair.
func (m *Matcher) Verify(ctx context.Context, userID string, probe []byte, metric Metric, threshold float64) (*VerifyResult, error) {
	probeEmb, err := m.embed(ctx, probe)
	if err != nil {
		return nil, err
	}

	ref, err := m.referenceEmbedding(ctx, userID)
	if err != nil {
		return nil, err
	}

	score, err := Score(Normalize(ref), probeEmb, metric)
	if err != nil {
		return nil, err
	}
	match, err := IsMatch(score, metric, threshold)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		UserID:    userID,
		Metric:    metric,
		Threshold: threshold,
		Score:     score,
		Match:     match,
	}, nil
}

// embed validates the image bytes, detects faces and returns the normalized
// embedding of the dominant (largest bounding box) face. Ties keep the
// first detected face.
func (m *Matcher) embed(ctx context.Context, img []byte) ([]float32, error) {
	if _, _, err := image.Decode(bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	faces, err := m.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return Normalize(best.Embedding), nil
}

// referenceEmbedding loads the stored mean embedding, or rebuilds it from
// the first baseline photos when the embedding object is gone.
func (m *Matcher) referenceEmbedding(ctx context.Context, userID string) ([]float32, error) {
	data, err := m.store.Get(ctx, embeddingKey(userID))
	if err == nil {
		var ref []float32
		if jsonErr := json.Unmarshal(data, &ref); jsonErr != nil {
			return nil, fmt.Errorf("corrupt embedding for user %s: %w", userID, jsonErr)
		}
		return ref, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	keys, err := m.store.List(ctx, userRoot(userID))
	if err != nil {
		return nil, err
	}
	var baselines []string
	for _, key := range keys {
		if strings.HasPrefix(path.Base(key), "baseline_") {
			baselines = append(baselines, key)
		}
	}
	if len(baselines) == 0 {
		return nil, ErrProfileNotFound
	}
	sort.Strings(baselines)
	if len(baselines) > maxBaselineFallback {
		baselines = baselines[:maxBaselineFallback]
	}

	var embs [][]float32
	for _, key := range baselines {
		img, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		emb, err := m.embed(ctx, img)
		if err != nil {
			log.Printf("Skipping baseline %s: %v", key, err)
			continue
		}
		embs = append(embs, emb)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("failed to compute baseline embedding for user %s", userID)
	}
	return meanEmbedding(embs), nil
}

// Enroll embeds every image, stores the originals as baselines and writes
// the normalized mean embedding. Images without a detectable face are
// skipped; at least one must succeed.
func (m *Matcher) Enroll(ctx context.Context, userID string, images [][]byte) (*EnrollResult, error) {
	var embs [][]float32
	var uploaded []string

	ts := time.Now().Unix()
	for idx, img := range images {
		emb, err := m.embed(ctx, img)
		if err != nil {
			log.Printf("Enroll user %s: image #%d skipped: %v", userID, idx+1, err)
			continue
		}

		key := fmt.Sprintf("%s/baseline_%d_%d.jpg", userRoot(userID), ts, idx+1)
		if err := m.store.Put(ctx, key, img, "image/jpeg"); err != nil {
			return nil, err
		}
		uploaded = append(uploaded, key)
		embs = append(embs, emb)
	}

	if len(embs) == 0 {
		return nil, ErrNoFaceDetected
	}

	mean := meanEmbedding(embs)
	payload, err := json.Marshal(mean)
	if err != nil {
		return nil, err
	}
	embKey := embeddingKey(userID)
	if err := m.store.Put(ctx, embKey, payload, "application/json"); err != nil {
		return nil, err
	}

	return &EnrollResult{
		UserID:        userID,
		ImageKeys:     uploaded,
		EmbeddingPath: embKey,
	}, nil
}

// DeleteUserData removes every stored object under the user's face folder.
func (m *Matcher) DeleteUserData(ctx context.Context, userID string) error {
	keys, err := m.store.List(ctx, userRoot(userID))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func meanEmbedding(embs [][]float32) []float32 {
	mean := make([]float32, len(embs[0]))
	for _, emb := range embs {
		for i, v := range emb {
			mean[i] += v
		}
	}
	n := float32(len(embs))
	for i := range mean {
		mean[i] /= n
	}
	return Normalize(mean)
}
