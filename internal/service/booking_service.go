package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindConflicts(ctx context.Context, classroomID, bookingDate, startTime, endTime, excludeID string) ([]models.Booking, error)
	CreateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	UpdateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id, reason string) error
	Cancel(ctx context.Context, id, cancelledBy, reason string) error
}

type transitionNotifier interface {
	BookingTransition(ctx context.Context, booking *models.Booking, event models.NotificationEvent, reason string) error
}

// CreateBookingRequest carries a new reservation proposal.
type CreateBookingRequest struct {
	ClassroomID string  `json:"classroom_id" validate:"required"`
	CourseName  string  `json:"course_name" validate:"required"`
	BookingDate string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string  `json:"end_time" validate:"required,datetime=15:04"`
	Description *string `json:"description,omitempty"`
}

// UpdateBookingRequest edits an existing reservation's slot or details.
type UpdateBookingRequest struct {
	ClassroomID string  `json:"classroom_id" validate:"required"`
	CourseName  string  `json:"course_name" validate:"required"`
	BookingDate string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string  `json:"end_time" validate:"required,datetime=15:04"`
	Description *string `json:"description,omitempty"`
}

// RejectBookingRequest records why an admin turned a request down.
type RejectBookingRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelBookingRequest records why a booking was cancelled.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BookingService owns conflict-checked creation and the booking lifecycle.
type BookingService struct {
	repo      bookingRepository
	notifier  transitionNotifier
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewBookingService instantiates BookingService. metrics may be nil.
func NewBookingService(repo bookingRepository, notifier transitionNotifier, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, notifier: notifier, validator: validate, logger: logger, metrics: metrics}
}

// List returns bookings with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// Get loads a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// CheckConflict reports whether the proposed slot collides with an Approved
// or Pending booking. excludeID skips the booking being edited.
func (s *BookingService) CheckConflict(ctx context.Context, classroomID, bookingDate, startTime, endTime, excludeID string) (bool, error) {
	if err := validateTimeRange(startTime, endTime); err != nil {
		return false, err
	}
	conflicts, err := s.repo.FindConflicts(ctx, classroomID, bookingDate, startTime, endTime, excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
	}
	return len(conflicts) > 0, nil
}

// Create inserts a new booking in Pending state after conflict detection.
// The conflict check and the insert run in one serializable transaction, so
// concurrent requests for the same slot cannot both succeed.
func (s *BookingService) Create(ctx context.Context, actorID string, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	booking := models.Booking{
		UserID:      actorID,
		ClassroomID: req.ClassroomID,
		CourseName:  req.CourseName,
		BookingDate: req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
		Status:      models.BookingPending,
		CreatedBy:   &actorID,
	}

	conflict, err := s.repo.CreateWithConflictCheck(ctx, &booking)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	if conflict != nil {
		return nil, s.wrapConflict(conflict)
	}
	return &booking, nil
}

// Update rewrites a booking's slot or details, excluding the booking itself
// from the conflict check so it never collides with its own reservation.
func (s *BookingService) Update(ctx context.Context, id string, actor *models.JWTClaims, req UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(existing, actor); err != nil {
		return nil, err
	}
	if existing.Status != models.BookingPending && existing.Status != models.BookingApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cancelled or rejected bookings cannot be edited")
	}

	updated := *existing
	updated.ClassroomID = req.ClassroomID
	updated.CourseName = req.CourseName
	updated.BookingDate = req.BookingDate
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.Description = req.Description

	conflict, err := s.repo.UpdateWithConflictCheck(ctx, &updated)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	if conflict != nil {
		return nil, s.wrapConflict(conflict)
	}
	return &updated, nil
}

// Approve transitions a Pending booking to Approved and notifies the
// requester. Approving a booking in any other state is refused.
func (s *BookingService) Approve(ctx context.Context, id, actorID string) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot approve a %s booking", booking.Status))
	}

	if err := s.repo.Approve(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve booking")
	}
	booking.Status = models.BookingApproved
	s.notify(ctx, booking, models.NotificationBookingApproved, "")
	return booking, nil
}

// Reject transitions a Pending booking to Rejected, recording the reason.
func (s *BookingService) Reject(ctx context.Context, id, actorID string, req RejectBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot reject a %s booking", booking.Status))
	}

	if err := s.repo.Reject(ctx, id, req.Reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject booking")
	}
	booking.Status = models.BookingRejected
	booking.Reason = &req.Reason
	s.notify(ctx, booking, models.NotificationBookingRejected, req.Reason)
	return booking, nil
}

// Cancel transitions a booking to Cancelled. Cancellation is deliberately
// permissive: it is legal from any state, including Approved, Rejected and
// already-Cancelled, matching the original system's behaviour. Only the
// booking owner or an admin may cancel.
func (s *BookingService) Cancel(ctx context.Context, id string, actor *models.JWTClaims, req CancelBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cancellation reason is required")
	}

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(booking, actor); err != nil {
		return nil, err
	}

	if err := s.repo.Cancel(ctx, id, actor.UserID, req.Reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	booking.Status = models.BookingCancelled
	booking.CancelledBy = &actor.UserID
	booking.Reason = &req.Reason
	s.notify(ctx, booking, models.NotificationBookingCancelled, req.Reason)
	return booking, nil
}

// notify hands the transition to the notification dispatcher. Delivery is
// best-effort: failures are logged and never surfaced to the caller.
func (s *BookingService) notify(ctx context.Context, booking *models.Booking, event models.NotificationEvent, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingTransition(ctx, booking, event, reason); err != nil {
		s.logger.Warn("booking notification failed",
			zap.String("booking_id", booking.ID),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}

func (s *BookingService) wrapConflict(conflict *models.Booking) error {
	if s.metrics != nil {
		s.metrics.RecordConflict("booking")
	}
	domainErr := &models.BookingConflictError{
		Message: "classroom already reserved for this slot",
		Conflict: models.BookingConflict{
			BookingID:   conflict.ID,
			ClassroomID: conflict.ClassroomID,
			BookingDate: conflict.BookingDate,
			StartTime:   conflict.StartTime,
			EndTime:     conflict.EndTime,
			Status:      conflict.Status,
		},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "time slot unavailable")
}

func requireOwnerOrAdmin(booking *models.Booking, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin || actor.UserID == booking.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the booking owner or an admin may do this")
}

func validateTimeRange(startTime, endTime string) error {
	if startTime >= endTime {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return nil
}
