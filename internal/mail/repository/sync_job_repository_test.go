package repository

import (
	"testing"
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsSecondProcessingJob(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	first, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, maildomain.JobProcessing, first.Status)

	_, err = repo.Create("acct-1", now, now.Add(5*time.Minute))
	assert.ErrorIs(t, err, ErrDuplicateJob)

	// A different account is unaffected
	_, err = repo.Create("acct-2", now, now.Add(5*time.Minute))
	assert.NoError(t, err)
}

func TestCreateAllowedAfterCompletion(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	job, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Complete(job.ID, 42, now))

	// The partial index only covers processing rows
	second, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, second.ID)
}

func TestCompleteRecordsCountAndTimestamp(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	job, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)

	done := now.Add(time.Minute)
	require.NoError(t, repo.Complete(job.ID, 120, done))

	got, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, maildomain.JobCompleted, got.Status)
	assert.Equal(t, 120, got.MessagesSynced)
	require.NotNil(t, got.CompletedAt)
}

func TestCompleteCannotResurrectFailedJob(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	job, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Fail(job.ID, "boom", now))

	// Status guard: a terminal job stays terminal
	require.NoError(t, repo.Complete(job.ID, 10, now))

	got, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, maildomain.JobFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
}

func TestFindProcessing(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	got, err := repo.FindProcessing("acct-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	job, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)

	got, err = repo.FindProcessing("acct-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
}

func TestFailStaleSweepsOnlyOldJobs(t *testing.T) {
	db := openTestDB(t)
	repo := NewSyncJobRepository(db)
	now := time.Now()

	stale, err := repo.Create("acct-stale", now.Add(-time.Hour), now.Add(-55*time.Minute))
	require.NoError(t, err)
	fresh, err := repo.Create("acct-fresh", now, now.Add(5*time.Minute))
	require.NoError(t, err)

	// Age the stale job's heartbeat past the cutoff
	require.NoError(t, db.Model(&maildomain.SyncJob{}).
		Where("id = ?", stale.ID).
		Update("updated_at", now.Add(-time.Hour)).Error)

	cleaned, err := repo.FailStale(now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleaned)

	gotStale, err := repo.FindByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, maildomain.JobFailed, gotStale.Status)
	assert.NotEmpty(t, gotStale.ErrorMessage)

	gotFresh, err := repo.FindByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, maildomain.JobProcessing, gotFresh.Status)
}

func TestCheckpointBumpsProgress(t *testing.T) {
	repo := NewSyncJobRepository(openTestDB(t))
	now := time.Now()

	job, err := repo.Create("acct-1", now, now.Add(5*time.Minute))
	require.NoError(t, err)

	require.NoError(t, repo.Checkpoint(job.ID, 50))
	require.NoError(t, repo.Checkpoint(job.ID, 100))

	got, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.MessagesSynced)
	assert.Equal(t, maildomain.JobProcessing, got.Status)
}
