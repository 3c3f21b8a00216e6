package metrics

import (
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// relativeAccuracy bounds the sketch's quantile error to ~1%, mirroring the
// window's purpose: cheap approximate percentiles, exact counts and sums
const relativeAccuracy = 0.01

// minPercentileSamples is the smallest in-window sample count for which a
// percentile is considered meaningful
const minPercentileSamples = 2

// digestBucket is one fixed-width time slice of the rolling window
type digestBucket struct {
	start  int64
	sketch *ddsketch.DDSketch
	count  int64
	total  float64
}

// rollingWindowDigest keeps mergeable latency sketches over a sliding time
// window. Buckets are appended in non-decreasing start order and trimmed on
// every read and write, so the window self-maintains with no background task.
// Not safe for concurrent use, the owning aggregator serializes access
type rollingWindowDigest struct {
	windowSeconds int64
	bucketSeconds int64
	buckets       []*digestBucket
}

func newRollingWindowDigest(windowSeconds int, bucketSeconds int) *rollingWindowDigest {
	if bucketSeconds < 1 {
		bucketSeconds = 1
	}

	return &rollingWindowDigest{
		windowSeconds: int64(windowSeconds),
		bucketSeconds: int64(bucketSeconds),
	}
}

func newSketch() *ddsketch.DDSketch {
	// the error can only trigger for an out-of-range accuracy parameter
	sketch, _ := ddsketch.NewDefaultDDSketch(relativeAccuracy)
	return sketch
}

// Add feeds one value into the bucket the timestamp falls in, trimming the
// window first. Values arrive in roughly time-ascending order so only the last
// bucket is checked for reuse
func (d *rollingWindowDigest) Add(value float64, timestamp time.Time) {
	now := timestamp.Unix()
	d.trim(now)

	bucketStart := (now / d.bucketSeconds) * d.bucketSeconds

	var bucket *digestBucket
	if len(d.buckets) > 0 && d.buckets[len(d.buckets)-1].start == bucketStart {
		bucket = d.buckets[len(d.buckets)-1]
	} else {
		bucket = &digestBucket{
			start:  bucketStart,
			sketch: newSketch(),
		}
		d.buckets = append(d.buckets, bucket)
	}

	_ = bucket.sketch.Add(value)
	bucket.count++
	bucket.total += value
}

// Count returns the exact number of in-window samples
func (d *rollingWindowDigest) Count(now time.Time) int64 {
	d.trim(now.Unix())

	var count int64
	for _, bucket := range d.buckets {
		count += bucket.count
	}

	return count
}

// Total returns the exact sum of in-window values
func (d *rollingWindowDigest) Total(now time.Time) float64 {
	d.trim(now.Unix())

	total := 0.0
	for _, bucket := range d.buckets {
		total += bucket.total
	}

	return total
}

// Mean returns Total/Count, or 0 for an empty window
func (d *rollingWindowDigest) Mean(now time.Time) float64 {
	d.trim(now.Unix())

	total := 0.0
	var count int64
	for _, bucket := range d.buckets {
		total += bucket.total
		count += bucket.count
	}
	if count == 0 {
		return 0
	}

	return total / float64(count)
}

// Percentile merges all live bucket sketches and interpolates the requested
// percentile (0-100). The second return value is false when fewer than 2
// samples are in the window: a single data point cannot yield a meaningful
// percentile and callers must be able to tell "no answer" from 0
func (d *rollingWindowDigest) Percentile(percentile float64, now time.Time) (float64, bool) {
	d.trim(now.Unix())

	merged := newSketch()
	var count int64
	for _, bucket := range d.buckets {
		_ = merged.MergeWith(bucket.sketch)
		count += bucket.count
	}

	if count < minPercentileSamples {
		return 0, false
	}

	if percentile < 0 {
		percentile = 0
	}
	if percentile > 100 {
		percentile = 100
	}

	value, err := merged.GetValueAtQuantile(percentile / 100)
	if err != nil {
		return 0, false
	}

	return value, true
}

func (d *rollingWindowDigest) trim(now int64) {
	cutoff := now - d.windowSeconds
	idx := 0
	for idx < len(d.buckets) && d.buckets[idx].start < cutoff {
		idx++
	}
	if idx > 0 {
		d.buckets = d.buckets[idx:]
	}
}
