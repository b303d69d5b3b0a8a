package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking. The integer values are
// the wire/storage representation; names are mapped at the JSON boundary.
type BookingStatus int

const (
	BookingCancelled BookingStatus = 0
	BookingApproved  BookingStatus = 1
	BookingPending   BookingStatus = 2
	BookingRejected  BookingStatus = 3
)

var bookingStatusNames = map[BookingStatus]string{
	BookingCancelled: "CANCELLED",
	BookingApproved:  "APPROVED",
	BookingPending:   "PENDING",
	BookingRejected:  "REJECTED",
}

// String returns the symbolic name of the status.
func (s BookingStatus) String() string {
	if name, ok := bookingStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Valid reports whether the status is one of the defined states.
func (s BookingStatus) Valid() bool {
	_, ok := bookingStatusNames[s]
	return ok
}

// ParseBookingStatus resolves a symbolic status name.
func ParseBookingStatus(name string) (BookingStatus, bool) {
	for value, n := range bookingStatusNames {
		if n == name {
			return value, true
		}
	}
	return 0, false
}

// MarshalJSON renders the status by name.
func (s BookingStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the symbolic name or the raw integer.
func (s *BookingStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for value, n := range bookingStatusNames {
			if n == name {
				*s = value
				return nil
			}
		}
		return fmt.Errorf("unknown booking status %q", name)
	}
	var value int
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed := BookingStatus(value)
	if !parsed.Valid() {
		return fmt.Errorf("unknown booking status %d", value)
	}
	*s = parsed
	return nil
}

// Booking represents a single-occurrence room reservation.
// BookingDate is a calendar date ("2006-01-02"); StartTime/EndTime are
// zero-padded wall-clock "15:04" strings, so lexicographic comparison matches
// chronological order. Spans never cross midnight.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	ClassroomID string        `db:"classroom_id" json:"classroom_id"`
	CourseName  string        `db:"course_name" json:"course_name"`
	BookingDate string        `db:"booking_date" json:"booking_date"`
	StartTime   string        `db:"start_time" json:"start_time"`
	EndTime     string        `db:"end_time" json:"end_time"`
	Description *string       `db:"description" json:"description,omitempty"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedBy   *string       `db:"created_by" json:"created_by,omitempty"`
	CancelledBy *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	Reason      *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	UserID      string
	ClassroomID string
	Status      *BookingStatus
	DateFrom    string
	DateTo      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// BookingConflict describes an existing reservation blocking a request.
type BookingConflict struct {
	BookingID   string        `json:"booking_id"`
	ClassroomID string        `json:"classroom_id"`
	BookingDate string        `json:"booking_date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	Status      BookingStatus `json:"status"`
}

// BookingConflictError is returned when a requested slot overlaps an
// Approved or Pending booking on the same classroom and date.
type BookingConflictError struct {
	Message  string          `json:"message"`
	Conflict BookingConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
