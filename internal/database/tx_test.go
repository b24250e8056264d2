package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), db, DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE products SET stock_quantity = 1")
		return err
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollbackKeepsOriginalError(t *testing.T) {
	db, mock := newMockDB(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	err := WithTransaction(ctx, db, DefaultTxOptions(), func(tx *sql.Tx) error {
		return fmt.Errorf("%w: product 7", ErrInsufficientStock)
	})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "insufficient stock: product 7", err.Error())
	assert.Equal(t, 1, logs.FilterMessage("rollback failed").Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionSetsLockTimeout(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config\('lock_timeout', \$1, true\)`).
		WithArgs("1500ms").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	opts := DefaultTxOptions()
	opts.LockTimeout = 1500 * time.Millisecond
	err := WithTransaction(context.Background(), db, opts, func(tx *sql.Tx) error { return nil })

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryRetriesDeadlock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := WithRetry(context.Background(), db, DefaultTxOptions(), func(tx *sql.Tx) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("lock product 1: %w", &pq.Error{Code: "40P01"})
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryDoesNotRetryBusinessErrors(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := WithRetry(context.Background(), db, DefaultTxOptions(), func(tx *sql.Tx) error {
		calls++
		return ErrVendorNotAcceptingOrders
	})

	assert.ErrorIs(t, err, ErrVendorNotAcceptingOrders)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryLockTimeoutAfterMaxRetries(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	opts := DefaultTxOptions()
	opts.MaxRetries = 0
	err := WithRetry(context.Background(), db, opts, func(tx *sql.Tx) error {
		return &pq.Error{Code: "55P03"}
	})

	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
