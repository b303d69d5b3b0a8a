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

const bookingColumns = "id, user_id, classroom_id, course_name, booking_date, start_time, end_time, description, status, created_by, cancelled_by, reason, created_at, updated_at"

// Clauses match the original conflict predicate: two half-open [start, end)
// intervals on the same classroom and date. Back-to-back slots do not collide.
const bookingOverlapClause = `(
		(start_time <= $%[1]d AND end_time > $%[1]d)
		OR (start_time < $%[2]d AND end_time >= $%[2]d)
		OR (start_time >= $%[1]d AND end_time <= $%[2]d)
	)`

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, int(*filter.Status))
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("booking_date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("booking_date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"booking_date": true,
		"start_time":   true,
		"status":       true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "booking_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time DESC LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindConflicts returns Approved or Pending bookings on the same classroom
// and date whose time range overlaps the proposed slot. excludeID skips the
// record being edited so a booking never conflicts with itself.
func (r *BookingRepository) FindConflicts(ctx context.Context, classroomID, bookingDate, startTime, endTime, excludeID string) ([]models.Booking, error) {
	return findBookingConflicts(ctx, r.db, classroomID, bookingDate, startTime, endTime, excludeID)
}

func findBookingConflicts(ctx context.Context, exec sqlx.ExtContext, classroomID, bookingDate, startTime, endTime, excludeID string) ([]models.Booking, error) {
	args := []interface{}{classroomID, bookingDate, startTime, endTime}
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE classroom_id = $1 AND booking_date = $2 AND status IN (%d, %d) AND %s",
		bookingColumns, int(models.BookingApproved), int(models.BookingPending), fmt.Sprintf(bookingOverlapClause, 3, 4))
	if excludeID != "" {
		query += " AND id != $5"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC"

	var conflicts []models.Booking
	if err := sqlx.SelectContext(ctx, exec, &conflicts, query, args...); err != nil {
		return nil, fmt.Errorf("find booking conflicts: %w", err)
	}
	return conflicts, nil
}

// CreateWithConflictCheck atomically verifies the slot is free and inserts
// the booking. The check and the insert share a serializable transaction, so
// two concurrent requests for the same slot cannot both commit. On conflict
// the first blocking booking is returned and nothing is persisted.
func (r *BookingRepository) CreateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin create booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	conflicts, err := findBookingConflicts(ctx, tx, booking.ClassroomID, booking.BookingDate, booking.StartTime, booking.EndTime, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return &conflicts[0], nil
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const insert = `INSERT INTO bookings (id, user_id, classroom_id, course_name, booking_date, start_time, end_time, description, status, created_by, created_at, updated_at) VALUES (:id, :user_id, :classroom_id, :course_name, :booking_date, :start_time, :end_time, :description, :status, :created_by, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create booking: %w", err)
	}
	return nil, nil
}

// UpdateWithConflictCheck atomically re-verifies the slot (excluding the
// booking itself) and persists new time/course details.
func (r *BookingRepository) UpdateWithConflictCheck(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin update booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	conflicts, err := findBookingConflicts(ctx, tx, booking.ClassroomID, booking.BookingDate, booking.StartTime, booking.EndTime, booking.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return &conflicts[0], nil
	}

	booking.UpdatedAt = time.Now().UTC()
	const update = `UPDATE bookings SET classroom_id = :classroom_id, course_name = :course_name, booking_date = :booking_date, start_time = :start_time, end_time = :end_time, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err = sqlx.NamedExecContext(ctx, tx, update, booking); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update booking: %w", err)
	}
	return nil, nil
}

// Approve marks a booking approved.
func (r *BookingRepository) Approve(ctx context.Context, id string) error {
	query := `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, int(models.BookingApproved), time.Now().UTC()); err != nil {
		return fmt.Errorf("approve booking: %w", err)
	}
	return nil
}

// Reject marks a booking rejected, recording the reason.
func (r *BookingRepository) Reject(ctx context.Context, id, reason string) error {
	query := `UPDATE bookings SET status = $2, reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, int(models.BookingRejected), reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("reject booking: %w", err)
	}
	return nil
}

// Cancel marks a booking cancelled, recording who cancelled it and why.
func (r *BookingRepository) Cancel(ctx context.Context, id, cancelledBy, reason string) error {
	query := `UPDATE bookings SET status = $2, cancelled_by = $3, reason = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, int(models.BookingCancelled), cancelledBy, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	return nil
}
