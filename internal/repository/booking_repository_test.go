package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func bookingRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "classroom_id", "course_name", "booking_date", "start_time", "end_time", "description", "status", "created_by", "cancelled_by", "reason", "created_at", "updated_at"}).
		AddRow("b1", "u1", "c1", "Databases", "2025-11-10", "09:00", "10:30", nil, int(models.BookingApproved), "u1", nil, nil, now, now)
}

func TestFindBookingByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("b1").
		WillReturnRows(bookingRows(time.Now()))

	booking, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", booking.ID)
	assert.Equal(t, models.BookingApproved, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBookingConflictsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("classroom_id = $1 AND booking_date = $2 AND status IN (1, 2)")).
		WithArgs("c1", "2025-11-10", "10:00", "11:00").
		WillReturnRows(bookingRows(time.Now()))

	conflicts, err := repo.FindConflicts(context.Background(), "c1", "2025-11-10", "10:00", "11:00", "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "b1", conflicts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBookingConflictsExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("id != $5")).
		WithArgs("c1", "2025-11-10", "10:00", "11:00", "b1").
		WillReturnRows(bookingRows(time.Now()))

	_, err := repo.FindConflicts(context.Background(), "c1", "2025-11-10", "10:00", "11:00", "b1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingCommitsWhenSlotFree(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("status IN (1, 2)")).
		WithArgs("c1", "2025-11-10", "10:30", "11:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		UserID:      "u1",
		ClassroomID: "c1",
		CourseName:  "Databases",
		BookingDate: "2025-11-10",
		StartTime:   "10:30",
		EndTime:     "11:30",
		Status:      models.BookingPending,
	}
	conflict, err := repo.CreateWithConflictCheck(context.Background(), booking)
	require.NoError(t, err)
	assert.Nil(t, conflict)
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRollsBackOnConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("status IN (1, 2)")).
		WithArgs("c1", "2025-11-10", "10:00", "11:00").
		WillReturnRows(bookingRows(time.Now()))
	mock.ExpectRollback()

	booking := &models.Booking{
		UserID:      "u2",
		ClassroomID: "c1",
		BookingDate: "2025-11-10",
		StartTime:   "10:00",
		EndTime:     "11:00",
		Status:      models.BookingPending,
	}
	conflict, err := repo.CreateWithConflictCheck(context.Background(), booking)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "b1", conflict.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingExcludesItselfFromConflictCheck(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("id != $5")).
		WithArgs("c1", "2025-11-10", "09:00", "10:30", "b1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ID:          "b1",
		ClassroomID: "c1",
		BookingDate: "2025-11-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
	}
	conflict, err := repo.UpdateWithConflictCheck(context.Background(), booking)
	require.NoError(t, err)
	assert.Nil(t, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingStatusTransitions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("b1", int(models.BookingApproved), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Approve(context.Background(), "b1"))

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("b1", int(models.BookingRejected), "room maintenance", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Reject(context.Background(), "b1", "room maintenance"))

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("b1", int(models.BookingCancelled), "u1", "class cancelled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Cancel(context.Background(), "b1", "u1", "class cancelled"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
