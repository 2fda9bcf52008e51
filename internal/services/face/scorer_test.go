package face

import (
	"errors"
	"math"
	"testing"
)

func TestScoreCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"partial overlap", []float32{0.6, 0.8}, []float32{1, 0}, 0.6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score, err := Score(tc.a, tc.b, MetricCosine)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if math.Abs(score-tc.expected) > 1e-6 {
				t.Errorf("Score = %f; want %f", score, tc.expected)
			}
		})
	}
}

func TestCosineScoreBounds(t *testing.T) {
	// For any pair of unit vectors the cosine score stays within [-1, 1].
	vectors := [][]float32{
		Normalize([]float32{1, 2, 3}),
		Normalize([]float32{-4, 0.5, 2}),
		Normalize([]float32{0.001, -0.002, 0.003}),
		Normalize([]float32{9, 9, 9}),
	}
	for _, a := range vectors {
		for _, b := range vectors {
			score, err := Score(a, b, MetricCosine)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if score < -1.000001 || score > 1.000001 {
				t.Errorf("cosine score %f out of [-1, 1]", score)
			}
		}
	}
}

func TestScoreL2(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	score, err := Score(a, b, MetricL2)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	want := -math.Sqrt(2)
	if math.Abs(score-want) > 1e-6 {
		t.Errorf("Score = %f; want %f", score, want)
	}
}

func TestScoreUnsupportedMetric(t *testing.T) {
	if _, err := Score([]float32{1}, []float32{1}, Metric("hamming")); !errors.Is(err, ErrUnsupportedMetric) {
		t.Errorf("expected ErrUnsupportedMetric, got %v", err)
	}
	if _, err := IsMatch(0.5, Metric("hamming"), 0.4); !errors.Is(err, ErrUnsupportedMetric) {
		t.Errorf("expected ErrUnsupportedMetric, got %v", err)
	}
}

func TestIsMatch(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		metric    Metric
		threshold float64
		expected  bool
	}{
		{"cosine above threshold", 0.7, MetricCosine, 0.45, true},
		{"cosine at threshold", 0.45, MetricCosine, 0.45, true},
		{"cosine below threshold", 0.3, MetricCosine, 0.45, false},
		{"cosine threshold above max never matches", 1.0, MetricCosine, 1.1, false},
		{"l2 distance within threshold", -0.4, MetricL2, 0.5, true},
		{"l2 distance beyond threshold", -0.6, MetricL2, 0.5, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			match, err := IsMatch(tc.score, tc.metric, tc.threshold)
			if err != nil {
				t.Fatalf("IsMatch failed: %v", err)
			}
			if match != tc.expected {
				t.Errorf("IsMatch(%f, %s, %f) = %v; want %v",
					tc.score, tc.metric, tc.threshold, match, tc.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("normalized vector has squared length %f; want 1", sum)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			t.Errorf("component %d is %f after normalizing zero vector", i, x)
		}
	}
}
