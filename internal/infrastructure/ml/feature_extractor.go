package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"checkout-fraud-engine/internal/domain/session"
)

// minSamples is the fewest step distances or intervals a variance is computed over
const minSamples = 2

// FeatureExtractor turns raw checkout telemetry into a behavioral feature vector
type FeatureExtractor struct{}

// NewFeatureExtractor creates a new feature extractor
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract computes features. Inputs that are missing or too short stay nil
// and mark the vector low confidence; scoring still runs on what is present.
func (e *FeatureExtractor) Extract(t session.Telemetry, fingerprintHash string) session.FeatureVector {
	f := session.FeatureVector{
		FingerprintHash:     fingerprintHash,
		IsHeadlessSuspected: t.HeadlessSuspected,
		CookiesEnabled:      t.CookiesEnabled,
	}

	if steps := pointerSteps(t.Pointer); len(steps) >= minSamples {
		v := stat.Variance(steps, nil)
		f.PointerMovementVariance = &v
	}

	if intervals := keystrokeIntervals(t.Keystrokes); len(intervals) >= minSamples {
		sd := stat.StdDev(intervals, nil)
		f.KeystrokeIntervalStdDev = &sd
	}

	if t.StartedAtMs != nil && t.SubmittedAtMs != nil && *t.SubmittedAtMs >= *t.StartedAtMs {
		d := *t.SubmittedAtMs - *t.StartedAtMs
		f.TimeToSubmitMs = &d
	}

	f.LowConfidence = f.PointerMovementVariance == nil ||
		f.KeystrokeIntervalStdDev == nil ||
		f.TimeToSubmitMs == nil ||
		f.IsHeadlessSuspected == nil ||
		f.CookiesEnabled == nil ||
		f.FingerprintHash == ""

	return f
}

// pointerSteps returns the euclidean distance between consecutive samples in time order
func pointerSteps(samples []session.PointerSample) []float64 {
	if len(samples) < 2 {
		return nil
	}
	sorted := make([]session.PointerSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	steps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		steps = append(steps, math.Hypot(sorted[i].X-sorted[i-1].X, sorted[i].Y-sorted[i-1].Y))
	}
	return steps
}

func keystrokeIntervals(timestamps []int64) []float64 {
	if len(timestamps) < 2 {
		return nil
	}
	sorted := make([]int64, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, float64(sorted[i]-sorted[i-1]))
	}
	return intervals
}
