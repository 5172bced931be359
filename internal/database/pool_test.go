package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	// gorm.Open pings the connection; the monitored mock must expect it.
	mock.ExpectPing()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func TestNewManager(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Same(t, gormDB, m.DB())

	_, err = NewManager(nil, 0, nil)
	assert.Error(t, err)
}

func TestManager_PingAndClose(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, m.Ping(context.Background()))

	mock.ExpectClose()
	require.NoError(t, m.Close())
	assert.Error(t, m.Ping(context.Background()), "closed manager refuses pings")

	// Close is idempotent.
	assert.NoError(t, m.Close())
}

func TestManager_WithTransaction(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	err = m.WithTransaction(context.Background(), func(tx *gorm.DB) error { return nil })
	assert.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	wantErr := errors.New("boom")
	err = m.WithTransaction(context.Background(), func(tx *gorm.DB) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestManager_WithTransactionRetry_NonRetryable(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	// A plain application error is returned immediately, no retries.
	mock.ExpectBegin()
	mock.ExpectRollback()
	calls := 0
	err = m.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		calls++
		return errors.New("validation failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestManager_WithTransactionRetry_Retryable(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err = m.WithTransactionRetry(context.Background(), 5, func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return errors.New("deadlock detected")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestManager_WithTransactionRetry_ContextCancelled(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	err = m.WithTransactionRetry(ctx, 5, func(tx *gorm.DB) error {
		cancel()
		return errors.New("deadlock detected")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("unique constraint violated")))
	assert.True(t, isRetryableError(errors.New("Deadlock found when trying to get lock")))
	assert.True(t, isRetryableError(errors.New("SQLSTATE 40001 serialization failure")))
	assert.True(t, isRetryableError(errors.New("driver: bad connection")))
	assert.True(t, isRetryableError(errors.New("read tcp: connection reset by peer")))
}

func TestManager_Stats(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	m, err := NewManager(gormDB, 0, nil)
	require.NoError(t, err)

	stats := m.Stats()
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
}
