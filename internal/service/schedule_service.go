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

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error)
	ListByClassroom(ctx context.Context, classroomID string) ([]models.Schedule, error)
	FindConflicts(ctx context.Context, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID string) ([]models.Schedule, error)
	CreateWithConflictCheck(ctx context.Context, schedule *models.Schedule) ([]models.Schedule, error)
	UpdateWithConflictCheck(ctx context.Context, schedule *models.Schedule) ([]models.Schedule, error)
	Deactivate(ctx context.Context, id string) error
}

// CreateScheduleRequest registers a recurring weekly slot.
type CreateScheduleRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
	CourseName  string `json:"course_name" validate:"required"`
	DayOfWeek   string `json:"day_of_week" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	Semester    string `json:"semester" validate:"required"`
}

// UpdateScheduleRequest modifies an existing slot.
type UpdateScheduleRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
	CourseName  string `json:"course_name" validate:"required"`
	DayOfWeek   string `json:"day_of_week" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	Semester    string `json:"semester" validate:"required"`
}

// ScheduleService coordinates recurring-slot logic. A slot must be free on
// two independent exclusivity axes at once: the classroom and the teacher.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewScheduleService instantiates ScheduleService. metrics may be nil.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger, metrics: metrics}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
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
	return schedules, pagination, nil
}

// Get loads a single schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	sched, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return sched, nil
}

// ListByTeacher returns active schedules for a teacher.
func (s *ScheduleService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error) {
	schedules, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher schedules")
	}
	return schedules, nil
}

// ListByClassroom returns active schedules held in a classroom.
func (s *ScheduleService) ListByClassroom(ctx context.Context, classroomID string) ([]models.Schedule, error) {
	schedules, err := s.repo.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom schedules")
	}
	return schedules, nil
}

// CheckConflict reports whether a proposed slot collides on either the
// teacher or the classroom axis.
func (s *ScheduleService) CheckConflict(ctx context.Context, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	if err := validateTimeRange(startTime, endTime); err != nil {
		return false, err
	}
	if !models.IsWeekDay(dayOfWeek) {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day_of_week %q", dayOfWeek))
	}
	conflicts, err := s.repo.FindConflicts(ctx, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}
	return len(conflicts) > 0, nil
}

// Create inserts a new active schedule after dual-dimension conflict
// detection. A collision on either axis blocks creation.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	schedule := models.Schedule{
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		CourseName:  req.CourseName,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Semester:    req.Semester,
		Active:      true,
	}

	conflicts, err := s.repo.CreateWithConflictCheck(ctx, &schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	if len(conflicts) > 0 {
		return nil, s.wrapConflict(schedule, conflicts[0])
	}
	return &schedule, nil
}

// Update modifies an existing schedule, excluding it from its own conflict
// check.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.TeacherID = req.TeacherID
	updated.ClassroomID = req.ClassroomID
	updated.CourseName = req.CourseName
	updated.DayOfWeek = req.DayOfWeek
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.Semester = req.Semester

	conflicts, err := s.repo.UpdateWithConflictCheck(ctx, &updated)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	if len(conflicts) > 0 {
		return nil, s.wrapConflict(updated, conflicts[0])
	}
	return &updated, nil
}

// Delete soft-deactivates a schedule; records are never hard-deleted.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleService) wrapConflict(proposed models.Schedule, existing models.Schedule) error {
	if s.metrics != nil {
		s.metrics.RecordConflict("schedule")
	}
	dimension := models.ConflictDimensionRoom
	message := "classroom already scheduled for this slot"
	if existing.TeacherID == proposed.TeacherID {
		dimension = models.ConflictDimensionTeacher
		message = "teacher already scheduled for this slot"
	}
	domainErr := &models.ScheduleConflictError{
		Dimension: dimension,
		Message:   message,
		Conflict: models.ScheduleConflict{
			ScheduleID:  existing.ID,
			TeacherID:   existing.TeacherID,
			ClassroomID: existing.ClassroomID,
			DayOfWeek:   existing.DayOfWeek,
			StartTime:   existing.StartTime,
			EndTime:     existing.EndTime,
			Semester:    existing.Semester,
			Dimension:   dimension,
		},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}
