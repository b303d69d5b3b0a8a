package models

import "time"

// Room types recognised by the booking system.
const (
	RoomTypeTheory     = "Theory"
	RoomTypeLab        = "Lab"
	RoomTypeSeminar    = "Seminar"
	RoomTypeConference = "Conference"
)

// Classroom represents a bookable room.
type Classroom struct {
	ID          string    `db:"id" json:"id"`
	RoomNumber  string    `db:"room_number" json:"room_number"`
	RoomType    string    `db:"room_type" json:"room_type"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Building    string    `db:"building" json:"building"`
	Floor       int       `db:"floor" json:"floor"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter describes query params for listing classrooms.
type ClassroomFilter struct {
	RoomType  string
	Building  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AvailabilityQuery asks for classrooms free during a time slot.
type AvailabilityQuery struct {
	RoomType    string `form:"roomType" json:"room_type"`
	BookingDate string `form:"date" json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `form:"start" json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `form:"end" json:"end_time" validate:"required,datetime=15:04"`
}
