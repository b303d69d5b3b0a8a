package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

func scheduleRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "teacher_id", "classroom_id", "course_name", "day_of_week", "start_time", "end_time", "semester", "active", "created_at", "updated_at"}).
		AddRow("s1", "t1", "c1", "Algorithms", "Monday", "09:00", "10:30", "2025-2", true, now, now)
}

func TestFindScheduleConflictsChecksBothAxes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(teacher_id = $1 OR classroom_id = $2)")).
		WithArgs("t1", "c2", "Monday", "10:00", "11:00").
		WillReturnRows(scheduleRows(time.Now()))

	conflicts, err := repo.FindConflicts(context.Background(), "t1", "c2", "Monday", "10:00", "11:00", "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "t1", conflicts[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindScheduleConflictsOnlyActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("active = TRUE")).
		WithArgs("t1", "c1", "Monday", "10:00", "11:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conflicts, err := repo.FindConflicts(context.Background(), "t1", "c1", "Monday", "10:00", "11:00", "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateScheduleCommitsWhenSlotFree(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("(teacher_id = $1 OR classroom_id = $2)")).
		WithArgs("t1", "c1", "Tuesday", "08:00", "09:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO schedules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	schedule := &models.Schedule{
		TeacherID:   "t1",
		ClassroomID: "c1",
		CourseName:  "Algorithms",
		DayOfWeek:   "Tuesday",
		StartTime:   "08:00",
		EndTime:     "09:30",
		Semester:    "2025-2",
		Active:      true,
	}
	conflicts, err := repo.CreateWithConflictCheck(context.Background(), schedule)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NotEmpty(t, schedule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateScheduleRollsBackOnConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("(teacher_id = $1 OR classroom_id = $2)")).
		WithArgs("t1", "c2", "Monday", "10:00", "11:00").
		WillReturnRows(scheduleRows(time.Now()))
	mock.ExpectRollback()

	schedule := &models.Schedule{
		TeacherID:   "t1",
		ClassroomID: "c2",
		DayOfWeek:   "Monday",
		StartTime:   "10:00",
		EndTime:     "11:00",
		Active:      true,
	}
	conflicts, err := repo.CreateWithConflictCheck(context.Background(), schedule)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "s1", conflicts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScheduleExcludesItself(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("id != $6")).
		WithArgs("t1", "c1", "Monday", "09:00", "10:30", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE schedules SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	schedule := &models.Schedule{
		ID:          "s1",
		TeacherID:   "t1",
		ClassroomID: "c1",
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "10:30",
	}
	conflicts, err := repo.UpdateWithConflictCheck(context.Background(), schedule)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("UPDATE schedules SET active = FALSE").
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
