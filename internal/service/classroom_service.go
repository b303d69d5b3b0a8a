package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistsByRoomNumber(ctx context.Context, roomNumber, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
	Deactivate(ctx context.Context, id string) error
	FindAvailable(ctx context.Context, roomType, bookingDate, startTime, endTime string) ([]models.Classroom, error)
}

// CreateClassroomRequest registers a new bookable room.
type CreateClassroomRequest struct {
	RoomNumber  string  `json:"room_number" validate:"required"`
	RoomType    string  `json:"room_type" validate:"required,oneof=Theory Lab Seminar Conference"`
	Capacity    int     `json:"capacity" validate:"required,gt=0"`
	Building    string  `json:"building" validate:"required"`
	Floor       int     `json:"floor"`
	Description *string `json:"description,omitempty"`
}

// UpdateClassroomRequest modifies room details.
type UpdateClassroomRequest struct {
	RoomNumber  string  `json:"room_number" validate:"required"`
	RoomType    string  `json:"room_type" validate:"required,oneof=Theory Lab Seminar Conference"`
	Capacity    int     `json:"capacity" validate:"required,gt=0"`
	Building    string  `json:"building" validate:"required"`
	Floor       int     `json:"floor"`
	Description *string `json:"description,omitempty"`
}

// ClassroomService manages the classroom inventory.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService instantiates ClassroomService.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// List returns classrooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
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
	return classrooms, pagination, nil
}

// Get loads a single classroom.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

// Create registers a new classroom with a unique room number.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	exists, err := s.repo.ExistsByRoomNumber(ctx, req.RoomNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already in use")
	}

	room := models.Classroom{
		RoomNumber:  req.RoomNumber,
		RoomType:    req.RoomType,
		Capacity:    req.Capacity,
		Building:    req.Building,
		Floor:       req.Floor,
		Description: req.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, &room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return &room, nil
}

// Update modifies room details, keeping the room number unique.
func (s *ClassroomService) Update(ctx context.Context, id string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByRoomNumber(ctx, req.RoomNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already in use")
	}

	updated := *existing
	updated.RoomNumber = req.RoomNumber
	updated.RoomType = req.RoomType
	updated.Capacity = req.Capacity
	updated.Building = req.Building
	updated.Floor = req.Floor
	updated.Description = req.Description

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return &updated, nil
}

// Deactivate soft-disables a classroom. Bookings against it remain intact.
func (s *ClassroomService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate classroom")
	}
	return nil
}

// FindAvailable lists active classrooms free during the requested slot.
func (s *ClassroomService) FindAvailable(ctx context.Context, query models.AvailabilityQuery) ([]models.Classroom, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	if err := validateTimeRange(query.StartTime, query.EndTime); err != nil {
		return nil, err
	}
	classrooms, err := s.repo.FindAvailable(ctx, query.RoomType, query.BookingDate, query.StartTime, query.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find available classrooms")
	}
	return classrooms, nil
}
