package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hotel-maintenance-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_NextOrderNumber_IncrementsExistingRow(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_number_sequences" SET "last_value"=last_value + 1 WHERE hotel_id = $1 AND year = $2`)).
		WithArgs(int64(1), 2024).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_number_sequences" WHERE hotel_id = $1 AND year = $2`)).
		WithArgs(int64(1), 2024, 1).
		WillReturnRows(sqlmock.NewRows([]string{"hotel_id", "year", "last_value"}).AddRow(1, 2024, 42))
	mock.ExpectCommit()

	value, err := s.NextOrderNumber(context.Background(), 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_NextOrderNumber_CreatesFirstRow(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_number_sequences" SET "last_value"=last_value + 1 WHERE hotel_id = $1 AND year = $2`)).
		WithArgs(int64(7), 2024).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "order_number_sequences"`)).
		WithArgs(int64(7), 2024, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	value, err := s.NextOrderNumber(context.Background(), 7, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// When the database is unreachable the failure surfaces as
// ErrGenerationUnavailable and no number is handed out.
func TestGormStore_NextOrderNumber_FailureIsUnavailable(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_number_sequences" SET "last_value"=last_value + 1`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := s.NextOrderNumber(context.Background(), 1, 2024)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A version mismatch rolls the whole update back with ErrConcurrencyConflict
// and restores the snapshot's version for the caller to reload.
func TestGormStore_UpdateOrder_StaleVersionConflicts(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "maintenance_orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	order := model.MaintenanceOrder{
		ID:      5,
		Status:  model.StatusAssigned,
		Version: 3,
	}
	err := s.UpdateOrder(context.Background(), &order, []model.OrderStatusHistory{{
		OldStatus: model.StatusNew,
		NewStatus: model.StatusAssigned,
		ChangedAt: time.Now(),
	}}, nil)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, int64(3), order.Version, "version restored after a rejected write")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetHotel_NotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "hotels"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}))

	_, err := s.GetHotel(context.Background(), 404)
	assert.ErrorIs(t, err, ErrHotelNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
