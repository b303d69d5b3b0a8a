package models

// ReportFormat selects the export rendering for usage reports.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// BookingStatusCount aggregates bookings by lifecycle state.
type BookingStatusCount struct {
	Status BookingStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// RoomUsage counts approved bookings per classroom.
type RoomUsage struct {
	RoomNumber       string `db:"room_number" json:"room_number"`
	RoomType         string `db:"room_type" json:"room_type"`
	ApprovedBookings int    `db:"approved_bookings" json:"approved_bookings"`
}

// PeakHour counts approved bookings starting within an hour bucket.
type PeakHour struct {
	Hour     string `db:"hour" json:"hour"`
	Bookings int    `db:"bookings" json:"bookings"`
}

// UsageReport aggregates the statistics served by the reports endpoints.
type UsageReport struct {
	StatusCounts  []BookingStatusCount `json:"status_counts"`
	RoomUsage     []RoomUsage          `json:"room_usage"`
	PeakHours     []PeakHour           `json:"peak_hours"`
	Underutilized []RoomUsage          `json:"underutilized"`
}
