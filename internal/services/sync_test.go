package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitality-hq/syncserver/types"
)

type fakeSyncRepo struct {
	savedHabits []types.Habit
	savedLogs   []types.HabitLog
	saveCalls   int
	saveErr     error

	habits    []types.Habit
	logs      []types.HabitLog
	habitsErr error
	logsErr   error
}

func (f *fakeSyncRepo) SaveBatch(ctx context.Context, habits []types.Habit, logs []types.HabitLog) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedHabits = habits
	f.savedLogs = logs
	return nil
}

func (f *fakeSyncRepo) ListHabits(ctx context.Context, userID int) ([]types.Habit, error) {
	return f.habits, f.habitsErr
}

func (f *fakeSyncRepo) ListLogs(ctx context.Context, userID int) ([]types.HabitLog, error) {
	return f.logs, f.logsErr
}

func newTestService(repo *fakeSyncRepo) *SyncService {
	return NewSyncService(repo, nil, nil, "", nil)
}

func TestPushResolvesNaturalKeys(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	_, err := svc.Push(context.Background(), 7, "", []types.HabitUpsert{
		{ID: "h1", Name: "Run"},
		{LocalID: "h2", Name: "Read"},
	}, []types.HabitLogUpsert{
		{ID: "l1", HabitID: "h1", Date: "2026-08-29"},
		{LocalID: "l2", HabitLocalID: "h2"},
	})
	require.NoError(t, err)

	require.Len(t, repo.savedHabits, 2)
	assert.Equal(t, "h1", repo.savedHabits[0].LocalID)
	assert.Equal(t, "h2", repo.savedHabits[1].LocalID)
	assert.Equal(t, 7, repo.savedHabits[0].UserID)
	assert.Equal(t, 7, repo.savedHabits[1].UserID)

	require.Len(t, repo.savedLogs, 2)
	assert.Equal(t, "l1", repo.savedLogs[0].LocalID)
	assert.Equal(t, "h1", repo.savedLogs[0].HabitLocalID)
	assert.Equal(t, "l2", repo.savedLogs[1].LocalID)
	assert.Equal(t, "h2", repo.savedLogs[1].HabitLocalID)
}

func TestPushPrefersIDOverLocalID(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	_, err := svc.Push(context.Background(), 1, "", []types.HabitUpsert{
		{ID: "fresh", LocalID: "stale"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, repo.savedHabits, 1)
	assert.Equal(t, "fresh", repo.savedHabits[0].LocalID)
}

func TestPushStampsSyncTimes(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	before := time.Now().UTC()
	result, err := svc.Push(context.Background(), 1, "", []types.HabitUpsert{
		{ID: "h1"},
	}, []types.HabitLogUpsert{
		{ID: "l1"},
	})
	require.NoError(t, err)

	require.Len(t, repo.savedHabits, 1)
	require.Len(t, repo.savedLogs, 1)
	assert.False(t, repo.savedHabits[0].LastSyncedAt.Before(before))
	assert.False(t, repo.savedLogs[0].SyncedAt.Before(before))
	assert.Equal(t, repo.savedHabits[0].LastSyncedAt, result.Timestamp)
}

func TestPushDefaultsCreatedAt(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	clientCreated := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err := svc.Push(context.Background(), 1, "", []types.HabitUpsert{
		{ID: "h1", CreatedAt: clientCreated},
		{ID: "h2"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, repo.savedHabits, 2)
	assert.Equal(t, clientCreated, repo.savedHabits[0].CreatedAt)
	assert.False(t, repo.savedHabits[1].CreatedAt.IsZero())
}

func TestPushRejectsMissingLocalID(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	_, err := svc.Push(context.Background(), 1, "", []types.HabitUpsert{
		{Name: "no key"},
	}, nil)
	require.ErrorIs(t, err, ErrMissingLocalID)
	assert.Zero(t, repo.saveCalls)

	_, err = svc.Push(context.Background(), 1, "", nil, []types.HabitLogUpsert{
		{HabitID: "h1"},
	})
	require.ErrorIs(t, err, ErrMissingLocalID)
	assert.Zero(t, repo.saveCalls)
}

func TestPushBatchID(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	clientBatch := uuid.NewString()
	result, err := svc.Push(context.Background(), 1, clientBatch, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, clientBatch, result.BatchID)

	result, err = svc.Push(context.Background(), 1, "", nil, nil)
	require.NoError(t, err)
	_, err = uuid.Parse(result.BatchID)
	assert.NoError(t, err)
}

func TestPushReplacesMalformedBatchID(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	hostile := "../../other-user/secret"
	result, err := svc.Push(context.Background(), 1, hostile, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, hostile, result.BatchID)
	_, err = uuid.Parse(result.BatchID)
	assert.NoError(t, err)
}

func TestPushEmptyCollections(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	_, err := svc.Push(context.Background(), 1, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saveCalls)
	assert.Empty(t, repo.savedHabits)
	assert.Empty(t, repo.savedLogs)
}

func TestPushPropagatesRepoError(t *testing.T) {
	repo := &fakeSyncRepo{saveErr: errors.New("connection reset")}
	svc := newTestService(repo)

	_, err := svc.Push(context.Background(), 1, "", []types.HabitUpsert{{ID: "h1"}}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingLocalID)
}

func TestPullReturnsNonNilSlices(t *testing.T) {
	repo := &fakeSyncRepo{}
	svc := newTestService(repo)

	habits, logs, err := svc.Pull(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, habits)
	assert.NotNil(t, logs)
	assert.Empty(t, habits)
	assert.Empty(t, logs)
}

func TestPullPropagatesRepoError(t *testing.T) {
	repo := &fakeSyncRepo{logsErr: errors.New("connection reset")}
	svc := newTestService(repo)

	_, _, err := svc.Pull(context.Background(), 1)
	require.Error(t, err)
}
