package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/history")

// sqliteHistory is the sqlite implementation for the probe jobs archive
type sqliteHistory struct {
	db               *sql.DB
	retentionSeconds int
	cancelFunc       context.CancelFunc
	wg               sync.WaitGroup
}

// NewSQLiteHistory creates the database, schema, and starts the retention cleaner
func NewSQLiteHistory(dbPath string, retentionSeconds int) (*sqliteHistory, error) {
	err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sh := &sqliteHistory{
		db:               db,
		retentionSeconds: retentionSeconds,
		cancelFunc:       cancel,
	}

	sh.startRetentionCleaner(ctx)

	return sh, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS probe_jobs (
		job_id     TEXT    NOT NULL PRIMARY KEY,
		status     TEXT    NOT NULL,
		total      INTEGER NOT NULL,
		completed  INTEGER NOT NULL,
		results    TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_probe_jobs_created_at ON probe_jobs(created_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveJob upserts the finished job, the results map serialized as JSON
func (sh *sqliteHistory) SaveJob(job common.ProbeJob) error {
	results, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("failed to serialize probe results: %w", err)
	}

	_, err = sh.db.Exec(`
		INSERT INTO probe_jobs (job_id, status, total, completed, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status=excluded.status,
			completed=excluded.completed,
			results=excluded.results
	`, job.JobID, job.Status, job.Total, job.Completed, string(results), job.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert probe job: %w", err)
	}

	return nil
}

// ListRecent returns up to limit archived jobs, newest first
func (sh *sqliteHistory) ListRecent(ctx context.Context, limit int) ([]common.ProbeJob, error) {
	rows, err := sh.db.QueryContext(ctx, `
		SELECT job_id, status, total, completed, results, created_at
		FROM probe_jobs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []common.ProbeJob
	for rows.Next() {
		var job common.ProbeJob
		var results string
		var createdAt int64

		err = rows.Scan(&job.JobID, &job.Status, &job.Total, &job.Completed, &results, &createdAt)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal([]byte(results), &job.Results)
		if err != nil {
			log.Warn("corrupted probe job results row", "job id", job.JobID, "error", err)
			job.Results = make(map[string]common.ProbeResult)
		}
		job.CreatedAt = time.Unix(createdAt, 0).UTC()

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (sh *sqliteHistory) cleanRetainedJobs(ctx context.Context) error {
	cutoff := time.Now().Unix() - int64(sh.retentionSeconds)
	_, err := sh.db.ExecContext(ctx, "DELETE FROM probe_jobs WHERE created_at < ?", cutoff)
	return err
}

func (sh *sqliteHistory) startRetentionCleaner(ctx context.Context) {
	sh.wg.Add(1)

	// max(RetentionSeconds/10, 60)
	intervalSec := sh.retentionSeconds / 10
	if intervalSec < 60 {
		intervalSec = 60
	}

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)

	go func() {
		defer sh.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("running probe history retention cleanup")

				err := sh.cleanRetainedJobs(ctx)
				if err != nil {
					log.Warn("failed to cleanup retained probe jobs", "error", err)
				}
			}
		}
	}()
}

// Close closes the database and stops background routines
func (sh *sqliteHistory) Close() error {
	sh.cancelFunc()
	sh.wg.Wait()
	return sh.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (sh *sqliteHistory) IsInterfaceNil() bool {
	return sh == nil
}
