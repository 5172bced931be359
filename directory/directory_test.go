package directory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/warmline/warmline/store"
	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	return db
}

func seedOperator(t *testing.T, db *gorm.DB, id string, sessions, max int, available bool, status string) {
	t.Helper()
	require.NoError(t, db.Create(&store.OperatorRecord{
		OperatorID:            id,
		Name:                  "Operator " + id,
		Email:                 id + "@example.com",
		Status:                status,
		Available:             available,
		CurrentSessions:       sessions,
		MaxConcurrentSessions: max,
	}).Error)
}

func TestService_CheckAndReserve(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-free", 1, 3, true, "online")
	seedOperator(t, db, "op-full", 3, 3, true, "online")
	seedOperator(t, db, "op-away", 0, 3, false, "online")

	assert.NoError(t, svc.CheckAndReserve(ctx, "op-free"))

	err := svc.CheckAndReserve(ctx, "op-full")
	assert.Equal(t, types.ErrUnavailable, types.GetErrorCode(err))

	err = svc.CheckAndReserve(ctx, "op-away")
	assert.Equal(t, types.ErrUnavailable, types.GetErrorCode(err))

	err = svc.CheckAndReserve(ctx, "ghost")
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestService_ReleaseOrCommit_SuccessfulOutcome(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-src", 2, 3, true, "online")
	seedOperator(t, db, "op-dst", 1, 3, true, "online")

	require.NoError(t, svc.ReleaseOrCommit(ctx, "op-src", "op-dst", transfer.OutcomeSuccessful))

	src, err := svc.LookupOperator(ctx, "op-src")
	require.NoError(t, err)
	assert.Equal(t, 1, src.CurrentSessions, "source released one session")

	dst, err := svc.LookupOperator(ctx, "op-dst")
	require.NoError(t, err)
	assert.Equal(t, 2, dst.CurrentSessions, "target took the session over")

	var srcRec, dstRec store.OperatorRecord
	require.NoError(t, db.Where("operator_id = ?", "op-src").First(&srcRec).Error)
	require.NoError(t, db.Where("operator_id = ?", "op-dst").First(&dstRec).Error)
	assert.Equal(t, 1, srcRec.SuccessfulTransfers)
	assert.Equal(t, 1, dstRec.TotalSessionsHandled)
}

func TestService_ReleaseOrCommit_OtherOutcomesAreNoOps(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-src", 2, 3, true, "online")
	seedOperator(t, db, "op-dst", 1, 3, true, "online")

	require.NoError(t, svc.ReleaseOrCommit(ctx, "op-src", "op-dst", transfer.OutcomeFailed))
	require.NoError(t, svc.ReleaseOrCommit(ctx, "op-src", "op-dst", transfer.OutcomeCancelled))

	src, err := svc.LookupOperator(ctx, "op-src")
	require.NoError(t, err)
	assert.Equal(t, 2, src.CurrentSessions)

	dst, err := svc.LookupOperator(ctx, "op-dst")
	require.NoError(t, err)
	assert.Equal(t, 1, dst.CurrentSessions)
}

func TestService_ReleaseOrCommit_SessionsNeverGoNegative(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-src", 0, 3, true, "online")
	seedOperator(t, db, "op-dst", 0, 3, true, "online")

	require.NoError(t, svc.ReleaseOrCommit(ctx, "op-src", "op-dst", transfer.OutcomeSuccessful))

	src, err := svc.LookupOperator(ctx, "op-src")
	require.NoError(t, err)
	assert.Equal(t, 0, src.CurrentSessions)
}

func newTestPresence(t *testing.T) (*Presence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewPresenceWithClient(rdb, 30*time.Second), mr
}

func TestPresence_BeatAndExpiry(t *testing.T) {
	p, mr := newTestPresence(t)
	ctx := context.Background()

	online, err := p.Online(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, p.Beat(ctx, "op-1"))
	online, err = p.Online(ctx, "op-1")
	require.NoError(t, err)
	assert.True(t, online)

	// The heartbeat window expires without another beat.
	mr.FastForward(31 * time.Second)
	online, err = p.Online(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestPresence_Drop(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()

	require.NoError(t, p.Beat(ctx, "op-1"))
	require.NoError(t, p.Drop(ctx, "op-1"))

	online, err := p.Online(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestService_PresenceOverridesStatus(t *testing.T) {
	db := newTestDB(t)
	p, _ := newTestPresence(t)
	svc := New(db, p, nil)
	ctx := context.Background()

	// Persisted online but no heartbeat: treated as offline.
	seedOperator(t, db, "op-1", 0, 3, true, "online")

	info, err := svc.LookupOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "offline", info.Status)

	err = svc.CheckAndReserve(ctx, "op-1")
	assert.Equal(t, types.ErrUnavailable, types.GetErrorCode(err))

	require.NoError(t, svc.Heartbeat(ctx, "op-1"))
	info, err = svc.LookupOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "online", info.Status)
	assert.NoError(t, svc.CheckAndReserve(ctx, "op-1"))
}

func TestService_HeartbeatRevivesOfflineOperator(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-1", 0, 3, true, "offline")

	require.NoError(t, svc.Heartbeat(ctx, "op-1"))
	info, err := svc.LookupOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "online", info.Status)

	err = svc.Heartbeat(ctx, "ghost")
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestService_AvailabilityAndOffline(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, nil)
	ctx := context.Background()

	seedOperator(t, db, "op-1", 0, 3, true, "online")

	require.NoError(t, svc.SetAvailability(ctx, "op-1", false))
	err := svc.CheckAndReserve(ctx, "op-1")
	assert.Equal(t, types.ErrUnavailable, types.GetErrorCode(err))

	require.NoError(t, svc.GoOffline(ctx, "op-1"))
	info, err := svc.LookupOperator(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "offline", info.Status)
}
