package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

func TestStatusCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(int(models.BookingApproved), 12).
		AddRow(int(models.BookingPending), 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM bookings GROUP BY status")).
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.BookingApproved, counts[0].Status)
	assert.Equal(t, 12, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomUsageCountsOnlyApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"room_number", "room_type", "approved_bookings"}).
		AddRow("S-2", models.RoomTypeTheory, 9).
		AddRow("Lab-1", models.RoomTypeLab, 0)
	mock.ExpectQuery(regexp.QuoteMeta("b.status = 1")).WillReturnRows(rows)

	usage, err := repo.RoomUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, "S-2", usage[0].RoomNumber)
	assert.Equal(t, 9, usage[0].ApprovedBookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeakHoursBucketsByStartHour(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"hour", "bookings"}).
		AddRow("09", 4).
		AddRow("10", 7)
	mock.ExpectQuery(regexp.QuoteMeta("SUBSTRING(start_time FROM 1 FOR 2)")).WillReturnRows(rows)

	hours, err := repo.PeakHours(context.Background())
	require.NoError(t, err)
	require.Len(t, hours, 2)
	assert.Equal(t, "10", hours[1].Hour)
	assert.Equal(t, 7, hours[1].Bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnderutilizedAppliesMinimum(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"room_number", "room_type", "approved_bookings"}).
		AddRow("Conf-3", models.RoomTypeConference, 1)
	mock.ExpectQuery(regexp.QuoteMeta("HAVING COUNT(b.id) < $1")).
		WithArgs(2).
		WillReturnRows(rows)

	rooms, err := repo.Underutilized(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Conf-3", rooms[0].RoomNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
