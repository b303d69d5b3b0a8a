package models

// NotificationEvent identifies the booking lifecycle event being announced.
type NotificationEvent string

const (
	NotificationBookingApproved  NotificationEvent = "booking.approved"
	NotificationBookingRejected  NotificationEvent = "booking.rejected"
	NotificationBookingCancelled NotificationEvent = "booking.cancelled"
)

// BookingNotification is handed to the notification dispatcher after a
// status transition. Delivery is best-effort: failures are logged and never
// affect the transition itself.
type BookingNotification struct {
	BookingID      string            `json:"booking_id"`
	Event          NotificationEvent `json:"event"`
	RecipientID    string            `json:"recipient_id"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name"`
	CourseName     string            `json:"course_name"`
	RoomNumber     string            `json:"room_number"`
	BookingDate    string            `json:"booking_date"`
	StartTime      string            `json:"start_time"`
	EndTime        string            `json:"end_time"`
	Reason         string            `json:"reason,omitempty"`
}
