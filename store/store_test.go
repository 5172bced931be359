package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return New(db, nil)
}

func TestStore_CallLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateCall(ctx, &CallRecord{
		CallID:     "call-1",
		CallerName: "Jordan",
		RoomName:   "call_call-1",
		Priority:   "high",
	})
	require.NoError(t, err)

	got, err := s.GetCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, "call_call-1", got.RoomName)
	assert.False(t, got.StartedAt.IsZero())

	// Duplicate call IDs are rejected.
	err = s.CreateCall(ctx, &CallRecord{CallID: "call-1", RoomName: "other"})
	assert.Equal(t, types.ErrConflict, types.GetErrorCode(err))

	require.NoError(t, s.UpdateCallStatus(ctx, "call-1", "transferred"))

	active, err := s.ListActiveCalls(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, s.EndCall(ctx, "call-1"))
	got, err = s.GetCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "ended", got.Status)
	assert.NotNil(t, got.EndedAt)

	active, err = s.ListActiveCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_CallNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetCall(ctx, "ghost")
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))

	err = s.UpdateCallStatus(ctx, "ghost", "ended")
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestStore_OperatorLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateOperator(ctx, &OperatorRecord{
		OperatorID: "op-1",
		Name:       "Sam",
		Email:      "sam@example.com",
		Skills:     "billing,escalations",
	})
	require.NoError(t, err)

	got, err := s.GetOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.MaxConcurrentSessions, "default capacity applied")
	assert.Equal(t, "offline", got.Status)

	require.NoError(t, s.UpdateOperatorStatus(ctx, "op-1", "online", true))
	got, err = s.GetOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "online", got.Status)
	assert.NotNil(t, got.LastActiveAt)

	err = s.CreateOperator(ctx, &OperatorRecord{OperatorID: "op-1", Name: "Dup", Email: "dup@example.com"})
	assert.Equal(t, types.ErrConflict, types.GetErrorCode(err))
}

func TestStore_ListOperators_OnlyAvailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOperator(ctx, &OperatorRecord{OperatorID: "op-1", Name: "A", Email: "a@example.com"}))
	require.NoError(t, s.CreateOperator(ctx, &OperatorRecord{OperatorID: "op-2", Name: "B", Email: "b@example.com"}))
	require.NoError(t, s.UpdateOperatorStatus(ctx, "op-2", "online", true))

	all, err := s.ListOperators(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	avail, err := s.ListOperators(ctx, true)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "op-2", avail[0].OperatorID)
}

func TestStore_RecorderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-15 * time.Minute)
	require.NoError(t, s.CreateCall(ctx, &CallRecord{
		CallID:     "call-1",
		CallerName: "Jordan",
		RoomName:   "call_call-1",
		Priority:   "high",
		StartedAt:  started,
	}))

	info, err := s.LookupCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "call_call-1", info.RoomName)
	assert.Equal(t, "Jordan", info.CallerName)

	initiated := time.Now().UTC().Add(-2 * time.Minute)
	rec := &transfer.Record{
		TransferID:       "tx-1",
		CallID:           "call-1",
		SourceOperatorID: "op-src",
		TargetOperatorID: "op-dst",
		BriefingRoom:     "briefing_tx1",
		OriginalRoom:     "call_call-1",
		Phase:            transfer.PhaseAwaitingOperators,
		Priority:         "high",
		Summary:          &types.Summary{Text: "Billing dispute.", Sentiment: types.SentimentNegative, Urgency: types.UrgencyHigh},
		InitiatedAt:      initiated,
	}
	require.NoError(t, s.SaveTransfer(ctx, rec))

	// Terminal save updates the same row in place.
	now := time.Now().UTC()
	rec.Phase = transfer.PhaseCompleted
	rec.Outcome = transfer.OutcomeSuccessful
	rec.TerminalAt = &now
	rec.DurationSeconds = int(now.Sub(initiated).Seconds())
	rec.Feedback = "smooth"
	require.NoError(t, s.SaveTransfer(ctx, rec))

	var count int64
	require.NoError(t, s.DB().Model(&TransferRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "upsert must not duplicate rows")

	got, err := s.LookupTransfer(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, transfer.PhaseCompleted, got.Phase)
	assert.Equal(t, transfer.OutcomeSuccessful, got.Outcome)
	assert.Equal(t, "smooth", got.Feedback)
	require.NotNil(t, got.Summary)
	assert.Equal(t, types.SentimentNegative, got.Summary.Sentiment)
	require.NotNil(t, got.TerminalAt)

	// The completed transfer marks the call as handed over.
	call, err := s.GetCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "transferred", call.Status)
}

func TestStore_ListTransfers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"tx-1", "tx-2", "tx-3"} {
		require.NoError(t, s.SaveTransfer(ctx, &transfer.Record{
			TransferID:       id,
			CallID:           "call-1",
			SourceOperatorID: "op-src",
			TargetOperatorID: "op-dst",
			Phase:            transfer.PhaseCancelled,
			Outcome:          transfer.OutcomeCancelled,
			InitiatedAt:      time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.SaveTransfer(ctx, &transfer.Record{
		TransferID:       "tx-other",
		CallID:           "call-2",
		SourceOperatorID: "op-src",
		TargetOperatorID: "op-dst",
		Phase:            transfer.PhaseCancelled,
		Outcome:          transfer.OutcomeCancelled,
		InitiatedAt:      time.Now().UTC(),
	}))

	rows, err := s.ListTransfers(ctx, "call-1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "tx-3", rows[0].TransferID, "newest first")

	rows, err = s.ListTransfers(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
