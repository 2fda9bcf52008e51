package face

import (
	"errors"
	"math"
)

// Metric selects how two embeddings are compared.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

var ErrUnsupportedMetric = errors.New("unsupported metric")

const normEpsilon = 1e-10

// Normalize scales v to unit length. The epsilon keeps a zero vector from
// dividing by zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Score compares two already-normalized embeddings. Cosine returns the dot
// product; l2 returns the negated euclidean distance so that bigger always
// means closer.
func Score(a, b []float32, metric Metric) (float64, error) {
	switch metric {
	case MetricCosine:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot, nil
	case MetricL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -math.Sqrt(sum), nil
	default:
		return 0, ErrUnsupportedMetric
	}
}

// IsMatch applies the threshold policy for the metric. For l2 the threshold
// is a distance, so a score of -dist matches when dist <= threshold.
func IsMatch(score float64, metric Metric, threshold float64) (bool, error) {
	switch metric {
	case MetricCosine:
		return score >= threshold, nil
	case MetricL2:
		return score >= -threshold, nil
	default:
		return false, ErrUnsupportedMetric
	}
}
