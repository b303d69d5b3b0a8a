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

const classroomColumns = "id, room_number, room_type, capacity, building, floor, description, active, created_at, updated_at"

// ClassroomRepository provides persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms with optional filtering and pagination.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RoomType != "" {
		conditions = append(conditions, fmt.Sprintf("room_type = $%d", len(args)+1))
		args = append(args, filter.RoomType)
	}
	if filter.Building != "" {
		conditions = append(conditions, fmt.Sprintf("building = $%d", len(args)+1))
		args = append(args, filter.Building)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"room_number": true,
		"building":    true,
		"capacity":    true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "room_number"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", classroomColumns, base, sortBy, order, size, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return classrooms, total, nil
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := fmt.Sprintf("SELECT %s FROM classrooms WHERE id = $1", classroomColumns)
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByRoomNumber reports whether another classroom already uses the label.
func (r *ClassroomRepository) ExistsByRoomNumber(ctx context.Context, roomNumber, excludeID string) (bool, error) {
	args := []interface{}{roomNumber}
	query := `SELECT 1 FROM classrooms WHERE LOWER(room_number) = LOWER($1)`
	if excludeID != "" {
		query += " AND id != $2"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"

	var one int
	err := r.db.GetContext(ctx, &one, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check room number: %w", err)
	}
	return true, nil
}

// Create stores a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, room *models.Classroom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, room_number, room_type, capacity, building, floor, description, active, created_at, updated_at) VALUES (:id, :room_number, :room_type, :capacity, :building, :floor, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update modifies a classroom record.
func (r *ClassroomRepository) Update(ctx context.Context, room *models.Classroom) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET room_number = :room_number, room_type = :room_type, capacity = :capacity, building = :building, floor = :floor, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Deactivate soft-disables a classroom so it no longer appears as available.
func (r *ClassroomRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE classrooms SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate classroom: %w", err)
	}
	return nil
}

// FindAvailable returns active classrooms of the given type with no Approved
// or Pending booking overlapping the requested slot. The anti-join uses the
// same overlap predicate as the booking conflict check.
func (r *ClassroomRepository) FindAvailable(ctx context.Context, roomType, bookingDate, startTime, endTime string) ([]models.Classroom, error) {
	args := []interface{}{bookingDate, startTime, endTime}
	base := fmt.Sprintf(`SELECT %s FROM classrooms c
	WHERE c.active = TRUE
	AND c.id NOT IN (
		SELECT classroom_id FROM bookings
		WHERE booking_date = $1
		AND status IN (%d, %d)
		AND (
			(start_time <= $2 AND end_time > $2)
			OR (start_time < $3 AND end_time >= $3)
			OR (start_time >= $2 AND end_time <= $3)
		)
	)`, classroomColumns, int(models.BookingApproved), int(models.BookingPending))
	if roomType != "" {
		base += " AND c.room_type = $4"
		args = append(args, roomType)
	}
	base += " ORDER BY c.room_number ASC"

	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, base, args...); err != nil {
		return nil, fmt.Errorf("find available classrooms: %w", err)
	}
	return classrooms, nil
}
