package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/smartcampus/campus-booking-api/internal/models"
)

// ReportRepository answers the aggregate queries behind usage reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StatusCounts returns the number of bookings per lifecycle state.
func (r *ReportRepository) StatusCounts(ctx context.Context) ([]models.BookingStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status ORDER BY status`
	var counts []models.BookingStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("booking status counts: %w", err)
	}
	return counts, nil
}

// RoomUsage counts approved bookings per active classroom.
func (r *ReportRepository) RoomUsage(ctx context.Context) ([]models.RoomUsage, error) {
	query := fmt.Sprintf(`SELECT c.room_number, c.room_type, COUNT(b.id) AS approved_bookings
	FROM classrooms c
	LEFT JOIN bookings b ON b.classroom_id = c.id AND b.status = %d
	WHERE c.active = TRUE
	GROUP BY c.room_number, c.room_type
	ORDER BY approved_bookings DESC, c.room_number ASC`, int(models.BookingApproved))
	var usage []models.RoomUsage
	if err := r.db.SelectContext(ctx, &usage, query); err != nil {
		return nil, fmt.Errorf("room usage: %w", err)
	}
	return usage, nil
}

// PeakHours buckets approved bookings by start hour.
func (r *ReportRepository) PeakHours(ctx context.Context) ([]models.PeakHour, error) {
	query := fmt.Sprintf(`SELECT SUBSTRING(start_time FROM 1 FOR 2) AS hour, COUNT(*) AS bookings
	FROM bookings
	WHERE status = %d
	GROUP BY hour
	ORDER BY hour ASC`, int(models.BookingApproved))
	var hours []models.PeakHour
	if err := r.db.SelectContext(ctx, &hours, query); err != nil {
		return nil, fmt.Errorf("peak hours: %w", err)
	}
	return hours, nil
}

// Underutilized lists active classrooms with fewer approved bookings than the
// given minimum.
func (r *ReportRepository) Underutilized(ctx context.Context, minimum int) ([]models.RoomUsage, error) {
	query := fmt.Sprintf(`SELECT c.room_number, c.room_type, COUNT(b.id) AS approved_bookings
	FROM classrooms c
	LEFT JOIN bookings b ON b.classroom_id = c.id AND b.status = %d
	WHERE c.active = TRUE
	GROUP BY c.room_number, c.room_type
	HAVING COUNT(b.id) < $1
	ORDER BY approved_bookings ASC, c.room_number ASC`, int(models.BookingApproved))
	var rooms []models.RoomUsage
	if err := r.db.SelectContext(ctx, &rooms, query, minimum); err != nil {
		return nil, fmt.Errorf("underutilized rooms: %w", err)
	}
	return rooms, nil
}
