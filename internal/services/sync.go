package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vitality-hq/syncserver/internal/mq"
	"github.com/vitality-hq/syncserver/internal/storage"
	"github.com/vitality-hq/syncserver/types"
)

// ErrMissingLocalID is returned when a pushed element carries no
// resolvable natural key.
var ErrMissingLocalID = errors.New("element has no local id")

// SyncRepository defines persistence operations for habit and habit
// log records.
type SyncRepository interface {
	SaveBatch(ctx context.Context, habits []types.Habit, logs []types.HabitLog) error
	ListHabits(ctx context.Context, userID int) ([]types.Habit, error)
	ListLogs(ctx context.Context, userID int) ([]types.HabitLog, error)
}

// SyncService reconciles client batches against the record store.
// Archive and events are optional: a nil archive skips batch
// archiving, a nil events skips event publishing. Neither ever fails
// a push that has already committed.
type SyncService struct {
	repo         SyncRepository
	archive      *storage.Storage
	events       *mq.MQ
	eventChannel string
	logger       *slog.Logger
}

func NewSyncService(repo SyncRepository, archive *storage.Storage, events *mq.MQ, eventChannel string, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		repo:         repo,
		archive:      archive,
		events:       events,
		eventChannel: eventChannel,
		logger:       logger,
	}
}

// PushResult reports a committed batch.
type PushResult struct {
	BatchID   string
	Timestamp time.Time
}

// SyncEvent is published after a batch commits.
type SyncEvent struct {
	UserID    int       `json:"userId"`
	BatchID   string    `json:"batchId"`
	Habits    int       `json:"habits"`
	Logs      int       `json:"logs"`
	Timestamp time.Time `json:"timestamp"`
}

// Push upserts the client's habit and log batches under userID. The
// natural key of each element resolves as id falling back to localId
// (habitId falling back to habitLocalId for the log's habit
// reference). Both collections commit in one transaction; empty
// collections are no-ops.
func (s *SyncService) Push(ctx context.Context, userID int, batchID string, habits []types.HabitUpsert, logs []types.HabitLogUpsert) (PushResult, error) {
	// Batch ids end up in archive object keys and event attributes, so
	// anything that is not a UUID is replaced rather than passed through.
	if _, err := uuid.Parse(batchID); err != nil {
		batchID = uuid.NewString()
	}
	now := time.Now().UTC()

	habitRecords := make([]types.Habit, 0, len(habits))
	for _, element := range habits {
		record, err := habitRecord(element, userID, now)
		if err != nil {
			return PushResult{}, err
		}
		habitRecords = append(habitRecords, record)
	}

	logRecords := make([]types.HabitLog, 0, len(logs))
	for _, element := range logs {
		record, err := logRecord(element, userID, now)
		if err != nil {
			return PushResult{}, err
		}
		logRecords = append(logRecords, record)
	}

	if err := s.repo.SaveBatch(ctx, habitRecords, logRecords); err != nil {
		return PushResult{}, err
	}

	s.archiveBatch(ctx, userID, batchID, habits, logs, now)
	s.publishEvent(ctx, SyncEvent{
		UserID:    userID,
		BatchID:   batchID,
		Habits:    len(habits),
		Logs:      len(logs),
		Timestamp: now,
	})

	return PushResult{BatchID: batchID, Timestamp: now}, nil
}

// Pull returns every non-deleted record for userID. Both slices are
// always non-nil so the response marshals as [] rather than null.
func (s *SyncService) Pull(ctx context.Context, userID int) ([]types.Habit, []types.HabitLog, error) {
	habits, err := s.repo.ListHabits(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.repo.ListLogs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if habits == nil {
		habits = []types.Habit{}
	}
	if logs == nil {
		logs = []types.HabitLog{}
	}
	return habits, logs, nil
}

func habitRecord(element types.HabitUpsert, userID int, now time.Time) (types.Habit, error) {
	localID := element.ID
	if localID == "" {
		localID = element.LocalID
	}
	if localID == "" {
		return types.Habit{}, ErrMissingLocalID
	}

	createdAt := element.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return types.Habit{
		LocalID:      localID,
		UserID:       userID,
		Name:         element.Name,
		Description:  element.Description,
		Icon:         element.Icon,
		Color:        element.Color,
		Frequency:    element.Frequency,
		ReminderTime: element.ReminderTime,
		CreatedAt:    createdAt,
		IsDeleted:    element.IsDeleted,
		LastSyncedAt: now,
	}, nil
}

func logRecord(element types.HabitLogUpsert, userID int, now time.Time) (types.HabitLog, error) {
	localID := element.ID
	if localID == "" {
		localID = element.LocalID
	}
	if localID == "" {
		return types.HabitLog{}, ErrMissingLocalID
	}

	habitLocalID := element.HabitID
	if habitLocalID == "" {
		habitLocalID = element.HabitLocalID
	}

	return types.HabitLog{
		LocalID:      localID,
		HabitLocalID: habitLocalID,
		UserID:       userID,
		Date:         element.Date,
		Completed:    element.Completed,
		Note:         element.Note,
		IsDeleted:    element.IsDeleted,
		SyncedAt:     now,
	}, nil
}

type archivedBatch struct {
	UserID     int                    `json:"userId"`
	BatchID    string                 `json:"batchId"`
	Habits     []types.HabitUpsert    `json:"habits"`
	Logs       []types.HabitLogUpsert `json:"logs"`
	ReceivedAt time.Time              `json:"receivedAt"`
}

func (s *SyncService) archiveBatch(ctx context.Context, userID int, batchID string, habits []types.HabitUpsert, logs []types.HabitLogUpsert, receivedAt time.Time) {
	if s.archive == nil {
		return
	}

	payload, err := json.Marshal(archivedBatch{
		UserID:     userID,
		BatchID:    batchID,
		Habits:     habits,
		Logs:       logs,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal batch archive", "batch_id", batchID, "error", err)
		return
	}

	key := fmt.Sprintf("batches/%d/%s.json", userID, batchID)
	if err := s.archive.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		s.logger.ErrorContext(ctx, "archive sync batch", "batch_id", batchID, "error", err)
	}
}

func (s *SyncService) publishEvent(ctx context.Context, event SyncEvent) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal sync event", "batch_id", event.BatchID, "error", err)
		return
	}

	attrs := map[string]string{"batch_id": event.BatchID}
	if _, err := s.events.Publish(ctx, s.eventChannel, payload, attrs); err != nil {
		s.logger.ErrorContext(ctx, "publish sync event", "batch_id", event.BatchID, "error", err)
	}
}
