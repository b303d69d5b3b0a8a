package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

const scheduleColumns = "id, teacher_id, classroom_id, course_name, day_of_week, start_time, end_time, semester, active, created_at, updated_at"

// ScheduleRepository provides persistence for recurring weekly slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE active = TRUE"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day_of_week": true,
		"start_time":  true,
		"semester":    true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListByTeacher returns active schedules taught by a teacher.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE teacher_id = $1 AND active = TRUE ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by teacher: %w", err)
	}
	return schedules, nil
}

// ListByClassroom returns active schedules held in a classroom.
func (r *ScheduleRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE classroom_id = $1 AND active = TRUE ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classroomID); err != nil {
		return nil, fmt.Errorf("list schedules by classroom: %w", err)
	}
	return schedules, nil
}

// FindConflicts returns active schedules on the same day that overlap the
// proposed slot on either exclusivity axis: same classroom (room
// double-booked) or same teacher (teacher double-booked). A single query
// covers both dimensions via OR on the resource identity.
func (r *ScheduleRepository) FindConflicts(ctx context.Context, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID string) ([]models.Schedule, error) {
	return findScheduleConflicts(ctx, r.db, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID)
}

func findScheduleConflicts(ctx context.Context, exec sqlx.ExtContext, teacherID, classroomID, dayOfWeek, startTime, endTime, excludeID string) ([]models.Schedule, error) {
	args := []interface{}{teacherID, classroomID, dayOfWeek, startTime, endTime}
	query := fmt.Sprintf(`SELECT %s FROM schedules
	WHERE (teacher_id = $1 OR classroom_id = $2)
	AND day_of_week = $3 AND active = TRUE
	AND (
		(start_time <= $4 AND end_time > $4)
		OR (start_time < $5 AND end_time >= $5)
		OR (start_time >= $4 AND end_time <= $5)
	)`, scheduleColumns)
	if excludeID != "" {
		query += " AND id != $6"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC"

	var conflicts []models.Schedule
	if err := sqlx.SelectContext(ctx, exec, &conflicts, query, args...); err != nil {
		return nil, fmt.Errorf("find schedule conflicts: %w", err)
	}
	return conflicts, nil
}

// CreateWithConflictCheck atomically verifies both exclusivity axes and
// inserts the schedule. On conflict the blocking schedules are returned and
// nothing is persisted.
func (r *ScheduleRepository) CreateWithConflictCheck(ctx context.Context, schedule *models.Schedule) ([]models.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin create schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	conflicts, err := findScheduleConflicts(ctx, tx, schedule.TeacherID, schedule.ClassroomID, schedule.DayOfWeek, schedule.StartTime, schedule.EndTime, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return conflicts, nil
	}

	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const insert = `INSERT INTO schedules (id, teacher_id, classroom_id, course_name, day_of_week, start_time, end_time, semester, active, created_at, updated_at) VALUES (:id, :teacher_id, :classroom_id, :course_name, :day_of_week, :start_time, :end_time, :semester, :active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, schedule); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create schedule: %w", err)
	}
	return nil, nil
}

// UpdateWithConflictCheck atomically re-verifies the slot (excluding the
// schedule itself) and persists the modified record.
func (r *ScheduleRepository) UpdateWithConflictCheck(ctx context.Context, schedule *models.Schedule) ([]models.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin update schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	conflicts, err := findScheduleConflicts(ctx, tx, schedule.TeacherID, schedule.ClassroomID, schedule.DayOfWeek, schedule.StartTime, schedule.EndTime, schedule.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return conflicts, nil
	}

	schedule.UpdatedAt = time.Now().UTC()
	const update = `UPDATE schedules SET teacher_id = :teacher_id, classroom_id = :classroom_id, course_name = :course_name, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, semester = :semester, updated_at = :updated_at WHERE id = :id`
	if _, err = sqlx.NamedExecContext(ctx, tx, update, schedule); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update schedule: %w", err)
	}
	return nil, nil
}

// Deactivate soft-deletes a schedule. Records are never hard-deleted.
func (r *ScheduleRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE schedules SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}
	return nil
}
