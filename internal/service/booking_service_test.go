package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

// mockBookingRepo keeps bookings in memory and reuses the production overlap
// predicate, so service tests exercise the same conflict semantics the SQL
// queries implement.
type mockBookingRepo struct {
	bookings  []models.Booking
	listErr   error
	createErr error
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.bookings, len(m.bookings), nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	for i := range m.bookings {
		if m.bookings[i].ID == id {
			found := m.bookings[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookingRepo) FindConflicts(ctx context.Context, classroomID, bookingDate, startTime, endTime, excludeID string) ([]models.Booking, error) {
	var conflicts []models.Booking
	for _, b := range m.bookings {
		if b.ClassroomID != classroomID || b.BookingDate != bookingDate {
			continue
		}
		if b.Status != models.BookingApproved && b.Status != models.BookingPending {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if models.Overlaps(b.StartTime, b.EndTime, startTime, endTime) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

func (m *mockBookingRepo) CreateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	conflicts, _ := m.FindConflicts(ctx, booking.ClassroomID, booking.BookingDate, booking.StartTime, booking.EndTime, "")
	if len(conflicts) > 0 {
		return &conflicts[0], nil
	}
	if booking.ID == "" {
		booking.ID = "generated"
	}
	m.bookings = append(m.bookings, *booking)
	return nil, nil
}

func (m *mockBookingRepo) UpdateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	conflicts, _ := m.FindConflicts(ctx, booking.ClassroomID, booking.BookingDate, booking.StartTime, booking.EndTime, booking.ID)
	if len(conflicts) > 0 {
		return &conflicts[0], nil
	}
	for i := range m.bookings {
		if m.bookings[i].ID == booking.ID {
			m.bookings[i] = *booking
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) setStatus(id string, status models.BookingStatus) {
	for i := range m.bookings {
		if m.bookings[i].ID == id {
			m.bookings[i].Status = status
		}
	}
}

func (m *mockBookingRepo) Approve(ctx context.Context, id string) error {
	m.setStatus(id, models.BookingApproved)
	return nil
}

func (m *mockBookingRepo) Reject(ctx context.Context, id, reason string) error {
	m.setStatus(id, models.BookingRejected)
	return nil
}

func (m *mockBookingRepo) Cancel(ctx context.Context, id, cancelledBy, reason string) error {
	m.setStatus(id, models.BookingCancelled)
	return nil
}

type mockNotifier struct {
	events []models.NotificationEvent
	err    error
}

func (m *mockNotifier) BookingTransition(ctx context.Context, booking *models.Booking, event models.NotificationEvent, reason string) error {
	m.events = append(m.events, event)
	return m.err
}

func newBookingService(repo *mockBookingRepo, notifier *mockNotifier) *BookingService {
	return NewBookingService(repo, notifier, validator.New(), zap.NewNop(), nil)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func existingBooking(id, classroomID, start, end string, status models.BookingStatus) models.Booking {
	return models.Booking{
		ID:          id,
		UserID:      "owner",
		ClassroomID: classroomID,
		CourseName:  "Databases",
		BookingDate: "2025-11-10",
		StartTime:   start,
		EndTime:     end,
		Status:      status,
	}
}

func TestCreateBookingConflictRejected(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingApproved),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u2", CreateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Networks",
		BookingDate: "2025-11-10",
		StartTime:   "10:00",
		EndTime:     "11:00",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Len(t, repo.bookings, 1, "conflicting booking must not be persisted")

	var conflictErr *models.BookingConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, "b1", conflictErr.Conflict.BookingID)
}

func TestCreateBookingBackToBackAllowed(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingApproved),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	booking, err := svc.Create(context.Background(), "u2", CreateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Networks",
		BookingDate: "2025-11-10",
		StartTime:   "10:30",
		EndTime:     "11:30",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Len(t, repo.bookings, 2)
}

func TestCreateBookingRoundTrip(t *testing.T) {
	repo := &mockBookingRepo{}
	svc := newBookingService(repo, &mockNotifier{})

	description := "midterm review session"
	created, err := svc.Create(context.Background(), "u2", CreateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Networks",
		BookingDate: "2025-11-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
		Description: &description,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u2", fetched.UserID)
	assert.Equal(t, "c1", fetched.ClassroomID)
	assert.Equal(t, "Networks", fetched.CourseName)
	assert.Equal(t, "2025-11-10", fetched.BookingDate)
	assert.Equal(t, "09:00", fetched.StartTime)
	assert.Equal(t, "10:30", fetched.EndTime)
	assert.Equal(t, models.BookingPending, fetched.Status)
	require.NotNil(t, fetched.Description)
	assert.Equal(t, description, *fetched.Description)
}

func TestCreateBookingIgnoresCancelledAndRejected(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingCancelled),
		existingBooking("b2", "c1", "09:00", "10:30", models.BookingRejected),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u2", CreateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Networks",
		BookingDate: "2025-11-10",
		StartTime:   "09:30",
		EndTime:     "10:00",
	})
	require.NoError(t, err, "cancelled and rejected bookings do not block a slot")
}

func TestCreateBookingInvalidTimeRange(t *testing.T) {
	svc := newBookingService(&mockBookingRepo{}, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u1", CreateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Networks",
		BookingDate: "2025-11-10",
		StartTime:   "11:00",
		EndTime:     "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateBookingExcludesItself(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	updated, err := svc.Update(context.Background(), "b1", adminClaims(), UpdateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Databases",
		BookingDate: "2025-11-10",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})
	require.NoError(t, err, "a booking never conflicts with its own slot")
	assert.Equal(t, "09:30", updated.StartTime)
}

func TestUpdateBookingOwnerOnly(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Update(context.Background(), "b1", teacherClaims("intruder"), UpdateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Databases",
		BookingDate: "2025-11-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateCancelledBookingRefused(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingCancelled),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Update(context.Background(), "b1", adminClaims(), UpdateBookingRequest{
		ClassroomID: "c1",
		CourseName:  "Databases",
		BookingDate: "2025-11-10",
		StartTime:   "09:00",
		EndTime:     "10:30",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApprovePendingBooking(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	notifier := &mockNotifier{}
	svc := newBookingService(repo, notifier)

	booking, err := svc.Approve(context.Background(), "b1", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, booking.Status)
	assert.Equal(t, []models.NotificationEvent{models.NotificationBookingApproved}, notifier.events)
}

func TestApproveNonPendingBookingRefused(t *testing.T) {
	for _, status := range []models.BookingStatus{models.BookingApproved, models.BookingRejected, models.BookingCancelled} {
		repo := &mockBookingRepo{bookings: []models.Booking{
			existingBooking("b1", "c1", "09:00", "10:30", status),
		}}
		svc := newBookingService(repo, &mockNotifier{})

		_, err := svc.Approve(context.Background(), "b1", "admin")
		require.Error(t, err, "approving a %s booking must fail", status)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Reject(context.Background(), "b1", "admin", RejectBookingRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectPendingBooking(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	notifier := &mockNotifier{}
	svc := newBookingService(repo, notifier)

	booking, err := svc.Reject(context.Background(), "b1", "admin", RejectBookingRequest{Reason: "room maintenance"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, booking.Status)
	require.NotNil(t, booking.Reason)
	assert.Equal(t, "room maintenance", *booking.Reason)
	assert.Equal(t, []models.NotificationEvent{models.NotificationBookingRejected}, notifier.events)
}

func TestCancelFromAnyState(t *testing.T) {
	for _, status := range []models.BookingStatus{models.BookingPending, models.BookingApproved, models.BookingRejected, models.BookingCancelled} {
		repo := &mockBookingRepo{bookings: []models.Booking{
			existingBooking("b1", "c1", "09:00", "10:30", status),
		}}
		svc := newBookingService(repo, &mockNotifier{})

		booking, err := svc.Cancel(context.Background(), "b1", adminClaims(), CancelBookingRequest{Reason: "class cancelled"})
		require.NoError(t, err, "cancelling a %s booking must succeed", status)
		assert.Equal(t, models.BookingCancelled, booking.Status)
	}
}

func TestCancelOwnerOrAdminOnly(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingApproved),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	_, err := svc.Cancel(context.Background(), "b1", teacherClaims("someone-else"), CancelBookingRequest{Reason: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	booking, err := svc.Cancel(context.Background(), "b1", teacherClaims("owner"), CancelBookingRequest{Reason: "class cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingPending),
	}}
	notifier := &mockNotifier{err: errors.New("smtp down")}
	svc := newBookingService(repo, notifier)

	booking, err := svc.Approve(context.Background(), "b1", "admin")
	require.NoError(t, err, "notification failures are logged, never surfaced")
	assert.Equal(t, models.BookingApproved, booking.Status)
}

func TestCheckConflictExcludeID(t *testing.T) {
	repo := &mockBookingRepo{bookings: []models.Booking{
		existingBooking("b1", "c1", "09:00", "10:30", models.BookingApproved),
	}}
	svc := newBookingService(repo, &mockNotifier{})

	conflict, err := svc.CheckConflict(context.Background(), "c1", "2025-11-10", "09:30", "10:00", "")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = svc.CheckConflict(context.Background(), "c1", "2025-11-10", "09:30", "10:00", "b1")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestGetBookingNotFound(t *testing.T) {
	svc := newBookingService(&mockBookingRepo{}, &mockNotifier{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
