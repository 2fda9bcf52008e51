package face

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DetectedFace is one face found by the detector service.
type DetectedFace struct {
	// BBox is [x1, y1, x2, y2] in pixel coordinates.
	BBox      [4]float64 `json:"bbox"`
	Embedding []float32  `json:"embedding"`
}

// Area returns the bounding box area, used to pick the dominant face.
func (f DetectedFace) Area() float64 {
	w := f.BBox[2] - f.BBox[0]
	h := f.BBox[3] - f.BBox[1]
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// Detector finds faces and their embeddings in an image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// HTTPDetector talks to an InsightFace-style detection server over
// multipart HTTP.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDetector(baseURL string) *HTTPDetector {
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type detectResponse struct {
	Faces []DetectedFace `json:"faces"`
}

func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([]DetectedFace, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "probe.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}
	return parsed.Faces, nil
}
