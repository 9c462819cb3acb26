package logging

import (
	"math"
	"strings"
)

// ProgressSampler thins out step progress so a step logs when it starts and
// then once per bucket. It is not safe for concurrent use.
type ProgressSampler struct {
	bucket     float64
	step       string
	lastBucket int
}

// NewProgressSampler returns a sampler for fractions in [0, 1]. Bucket sizes
// outside (0, 1] fall back to 0.1.
func NewProgressSampler(bucket float64) *ProgressSampler {
	if bucket <= 0 || bucket > 1 {
		bucket = 0.1
	}
	return &ProgressSampler{bucket: bucket, lastBucket: -1}
}

// ShouldLog reports whether progress for step is worth a log line. A new step
// name always logs and restarts the buckets. Negative fractions mean unknown
// progress and only log on a step change. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(step string, fraction float64) bool {
	if s == nil {
		return true
	}
	emit := false
	if step = strings.TrimSpace(step); step != s.step {
		s.step = step
		s.lastBucket = -1
		emit = true
	}
	if fraction < 0 || math.IsNaN(fraction) {
		return emit
	}
	// Small epsilon so 0.3 lands in bucket 3 despite float error.
	bucket := int(math.Floor(math.Min(fraction, 1)/s.bucket + 1e-9))
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset forgets the last step so the next report logs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.step = ""
	s.lastBucket = -1
}
