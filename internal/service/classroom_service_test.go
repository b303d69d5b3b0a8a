package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

type mockClassroomRepo struct {
	classrooms []models.Classroom
	available  []models.Classroom
	nextID     int
}

func (m *mockClassroomRepo) List(_ context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	var out []models.Classroom
	for _, c := range m.classrooms {
		if filter.RoomType != "" && c.RoomType != filter.RoomType {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockClassroomRepo) FindByID(_ context.Context, id string) (*models.Classroom, error) {
	for i := range m.classrooms {
		if m.classrooms[i].ID == id {
			found := m.classrooms[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) ExistsByRoomNumber(_ context.Context, roomNumber, excludeID string) (bool, error) {
	for _, c := range m.classrooms {
		if c.ID == excludeID {
			continue
		}
		if strings.EqualFold(c.RoomNumber, roomNumber) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassroomRepo) Create(_ context.Context, room *models.Classroom) error {
	m.nextID++
	room.ID = "room-" + string(rune('0'+m.nextID))
	m.classrooms = append(m.classrooms, *room)
	return nil
}

func (m *mockClassroomRepo) Update(_ context.Context, room *models.Classroom) error {
	for i := range m.classrooms {
		if m.classrooms[i].ID == room.ID {
			m.classrooms[i] = *room
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockClassroomRepo) Deactivate(_ context.Context, id string) error {
	for i := range m.classrooms {
		if m.classrooms[i].ID == id {
			m.classrooms[i].Active = false
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockClassroomRepo) FindAvailable(_ context.Context, _, _, _, _ string) ([]models.Classroom, error) {
	return m.available, nil
}

func newClassroomService(repo *mockClassroomRepo) *ClassroomService {
	return NewClassroomService(repo, validator.New(), zap.NewNop())
}

func seedClassroom() models.Classroom {
	return models.Classroom{
		ID:         "room-a",
		RoomNumber: "B-201",
		RoomType:   models.RoomTypeTheory,
		Capacity:   40,
		Building:   "B",
		Floor:      2,
		Active:     true,
	}
}

func TestClassroomCreateRejectsDuplicateRoomNumber(t *testing.T) {
	repo := &mockClassroomRepo{classrooms: []models.Classroom{seedClassroom()}}
	svc := newClassroomService(repo)

	_, err := svc.Create(context.Background(), CreateClassroomRequest{
		RoomNumber: "b-201",
		RoomType:   models.RoomTypeLab,
		Capacity:   25,
		Building:   "B",
		Floor:      2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.classrooms, 1)
}

func TestClassroomCreateRejectsUnknownRoomType(t *testing.T) {
	svc := newClassroomService(&mockClassroomRepo{})

	_, err := svc.Create(context.Background(), CreateClassroomRequest{
		RoomNumber: "C-101",
		RoomType:   "Auditorium",
		Capacity:   120,
		Building:   "C",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassroomCreateAssignsIDAndActivates(t *testing.T) {
	repo := &mockClassroomRepo{}
	svc := newClassroomService(repo)

	room, err := svc.Create(context.Background(), CreateClassroomRequest{
		RoomNumber: "C-101",
		RoomType:   models.RoomTypeSeminar,
		Capacity:   18,
		Building:   "C",
		Floor:      1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.True(t, room.Active)
}

func TestClassroomUpdateAllowsKeepingOwnRoomNumber(t *testing.T) {
	repo := &mockClassroomRepo{classrooms: []models.Classroom{seedClassroom()}}
	svc := newClassroomService(repo)

	room, err := svc.Update(context.Background(), "room-a", UpdateClassroomRequest{
		RoomNumber: "B-201",
		RoomType:   models.RoomTypeTheory,
		Capacity:   45,
		Building:   "B",
		Floor:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, room.Capacity)
}

func TestClassroomUpdateRejectsTakenRoomNumber(t *testing.T) {
	other := seedClassroom()
	other.ID = "room-b"
	other.RoomNumber = "B-202"
	repo := &mockClassroomRepo{classrooms: []models.Classroom{seedClassroom(), other}}
	svc := newClassroomService(repo)

	_, err := svc.Update(context.Background(), "room-a", UpdateClassroomRequest{
		RoomNumber: "B-202",
		RoomType:   models.RoomTypeTheory,
		Capacity:   40,
		Building:   "B",
		Floor:      2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassroomUpdateNotFound(t *testing.T) {
	svc := newClassroomService(&mockClassroomRepo{})

	_, err := svc.Update(context.Background(), "missing", UpdateClassroomRequest{
		RoomNumber: "D-1",
		RoomType:   models.RoomTypeTheory,
		Capacity:   10,
		Building:   "D",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassroomDeactivateSoftDisables(t *testing.T) {
	repo := &mockClassroomRepo{classrooms: []models.Classroom{seedClassroom()}}
	svc := newClassroomService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), "room-a"))
	assert.False(t, repo.classrooms[0].Active)
}

func TestFindAvailableValidatesSlot(t *testing.T) {
	svc := newClassroomService(&mockClassroomRepo{})

	cases := []struct {
		name  string
		query models.AvailabilityQuery
	}{
		{"missing date", models.AvailabilityQuery{StartTime: "09:00", EndTime: "10:00"}},
		{"bad time format", models.AvailabilityQuery{BookingDate: "2026-09-10", StartTime: "9am", EndTime: "10:00"}},
		{"inverted range", models.AvailabilityQuery{BookingDate: "2026-09-10", StartTime: "11:00", EndTime: "10:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.FindAvailable(context.Background(), tc.query)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestFindAvailableReturnsRepoResults(t *testing.T) {
	repo := &mockClassroomRepo{available: []models.Classroom{seedClassroom()}}
	svc := newClassroomService(repo)

	rooms, err := svc.FindAvailable(context.Background(), models.AvailabilityQuery{
		BookingDate: "2026-09-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "B-201", rooms[0].RoomNumber)
}
