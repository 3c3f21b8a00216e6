package history

import (
	"context"
	"testing"
	"time"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(jobID string, createdAt time.Time) common.ProbeJob {
	statusCode := 200
	latency := 12.5

	return common.ProbeJob{
		JobID:     jobID,
		Status:    common.JobStatusCompleted,
		Total:     1,
		Completed: 1,
		Results: map[string]common.ProbeResult{
			"GET /items": {
				EndpointID: "GET /items",
				Method:     "GET",
				Path:       "/items",
				Status:     common.ResultStatusHealthy,
				StatusCode: &statusCode,
				LatencyMs:  &latency,
			},
		},
		CreatedAt: createdAt,
	}
}

func TestSQLiteHistory_SaveAndList(t *testing.T) {
	sh, err := NewSQLiteHistory(":memory:", 3600)
	require.NoError(t, err)
	require.False(t, sh.IsInterfaceNil())
	defer func() {
		_ = sh.Close()
	}()

	now := time.Now().UTC().Truncate(time.Second)

	err = sh.SaveJob(testJob("job-1", now.Add(-time.Minute)))
	require.NoError(t, err)
	err = sh.SaveJob(testJob("job-2", now))
	require.NoError(t, err)

	jobs, err := sh.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// newest first
	assert.Equal(t, "job-2", jobs[0].JobID)
	assert.Equal(t, "job-1", jobs[1].JobID)
	assert.Equal(t, now, jobs[0].CreatedAt)

	result := jobs[0].Results["GET /items"]
	assert.Equal(t, common.ResultStatusHealthy, result.Status)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, 200, *result.StatusCode)

	// limit applies
	jobs, err = sh.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-2", jobs[0].JobID)
}

func TestSQLiteHistory_SaveIsAnUpsert(t *testing.T) {
	sh, err := NewSQLiteHistory(":memory:", 3600)
	require.NoError(t, err)
	defer func() {
		_ = sh.Close()
	}()

	now := time.Now().UTC().Truncate(time.Second)

	job := testJob("job-1", now)
	job.Status = common.JobStatusRunning
	job.Completed = 0
	require.NoError(t, sh.SaveJob(job))

	job.Status = common.JobStatusCompleted
	job.Completed = 1
	require.NoError(t, sh.SaveJob(job))

	jobs, err := sh.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, common.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Completed)
}

func TestSQLiteHistory_RetentionCleaner(t *testing.T) {
	// retention of 3 seconds, old jobs are removed by the synchronous cleaner
	sh, err := NewSQLiteHistory(":memory:", 3)
	require.NoError(t, err)
	defer func() {
		_ = sh.Close()
	}()

	require.NoError(t, sh.SaveJob(testJob("stale", time.Now().Add(-time.Minute))))
	require.NoError(t, sh.SaveJob(testJob("fresh", time.Now())))

	err = sh.cleanRetainedJobs(context.Background())
	require.NoError(t, err)

	jobs, err := sh.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "fresh", jobs[0].JobID)
}
