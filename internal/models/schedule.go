package models

import "time"

// WeekDays lists the recognised day_of_week values in calendar order.
var WeekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsWeekDay reports whether the given name is a valid day_of_week value.
func IsWeekDay(day string) bool {
	for _, d := range WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

// Schedule represents a recurring weekly class slot.
type Schedule struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	CourseName  string    `db:"course_name" json:"course_name"`
	DayOfWeek   string    `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Semester    string    `db:"semester" json:"semester"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	TeacherID   string
	ClassroomID string
	DayOfWeek   string
	Semester    string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Schedule conflict dimensions. A recurring slot must be free on both the
// room axis and the teacher axis independently.
const (
	ConflictDimensionRoom    = "ROOM"
	ConflictDimensionTeacher = "TEACHER"
)

// ScheduleConflict describes an existing schedule that causes a conflict.
type ScheduleConflict struct {
	ScheduleID  string `json:"schedule_id"`
	TeacherID   string `json:"teacher_id"`
	ClassroomID string `json:"classroom_id"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Semester    string `json:"semester"`
	Dimension   string `json:"dimension"`
}

// ScheduleConflictError is returned when a slot collides with an existing one.
type ScheduleConflictError struct {
	Dimension string           `json:"dimension"`
	Message   string           `json:"message"`
	Conflict  ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
