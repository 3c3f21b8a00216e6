package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindowDigest_CountTotalMean(t *testing.T) {
	t.Parallel()

	now := time.Now()
	digest := newRollingWindowDigest(300, 60)

	digest.Add(10, now)
	digest.Add(20, now)
	digest.Add(30, now)

	assert.Equal(t, int64(3), digest.Count(now))
	assert.Equal(t, 60.0, digest.Total(now))
	assert.Equal(t, 20.0, digest.Mean(now))
}

func TestRollingWindowDigest_Percentile(t *testing.T) {
	t.Parallel()

	t.Run("under two samples returns not ok", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		digest := newRollingWindowDigest(300, 60)

		_, ok := digest.Percentile(95, now)
		assert.False(t, ok)

		digest.Add(10, now)
		_, ok = digest.Percentile(95, now)
		assert.False(t, ok)

		digest.Add(20, now)
		_, ok = digest.Percentile(95, now)
		assert.True(t, ok)
	})
	t.Run("percentile stays within the observed range", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		digest := newRollingWindowDigest(300, 60)
		for v := 10; v <= 100; v += 10 {
			digest.Add(float64(v), now)
		}

		p95, ok := digest.Percentile(95, now)
		require.True(t, ok)
		assert.GreaterOrEqual(t, p95, 85.0)
		assert.LessOrEqual(t, p95, 101.0)

		p50, ok := digest.Percentile(50, now)
		require.True(t, ok)
		assert.GreaterOrEqual(t, p50, 10.0)
		assert.LessOrEqual(t, p50, 100.0)
	})
	t.Run("out of range argument is clamped", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		digest := newRollingWindowDigest(300, 60)
		digest.Add(10, now)
		digest.Add(20, now)

		low, ok := digest.Percentile(-5, now)
		require.True(t, ok)
		high, ok2 := digest.Percentile(150, now)
		require.True(t, ok2)
		assert.LessOrEqual(t, low, high)
	})
}

func TestRollingWindowDigest_WindowEviction(t *testing.T) {
	t.Parallel()

	start := time.Now()
	digest := newRollingWindowDigest(300, 60)

	digest.Add(100, start)
	assert.Equal(t, int64(1), digest.Count(start))

	// same bucket reused
	digest.Add(200, start.Add(10*time.Second))
	assert.Equal(t, int64(2), digest.Count(start.Add(10*time.Second)))

	// after the window slides past the samples, they are gone
	later := start.Add(400 * time.Second)
	assert.Equal(t, int64(0), digest.Count(later))
	assert.Equal(t, 0.0, digest.Mean(later))
	_, ok := digest.Percentile(95, later)
	assert.False(t, ok)
}

func TestRollingWindowDigest_BucketAlignment(t *testing.T) {
	t.Parallel()

	digest := newRollingWindowDigest(300, 60)

	// two timestamps in the same aligned minute share one bucket
	base := time.Unix(1_700_000_040, 0)
	digest.Add(1, base)
	digest.Add(2, base.Add(15*time.Second))
	assert.Equal(t, 1, len(digest.buckets))

	// the next aligned minute opens a new bucket
	digest.Add(3, base.Add(65*time.Second))
	assert.Equal(t, 2, len(digest.buckets))
}
