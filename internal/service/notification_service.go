package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	"github.com/smartcampus/campus-booking-api/pkg/jobs"
)

const jobTypeBookingNotification = "booking.notification"

type recipientFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type roomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// Sender delivers a rendered notification to the outside world. The real
// transport (SMTP or similar) is an external collaborator; the default
// implementation just logs the delivery.
type Sender interface {
	Send(ctx context.Context, notification models.BookingNotification) error
}

// LogSender writes notifications to the application log instead of sending
// them anywhere.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, n models.BookingNotification) error {
	s.logger.Info("booking notification",
		zap.String("event", string(n.Event)),
		zap.String("booking_id", n.BookingID),
		zap.String("recipient", n.RecipientEmail),
		zap.String("course", n.CourseName),
		zap.String("room", n.RoomNumber),
		zap.String("date", n.BookingDate),
		zap.String("slot", n.StartTime+"-"+n.EndTime),
		zap.String("reason", n.Reason))
	return nil
}

// NotificationService resolves recipients and dispatches booking transition
// notifications through the background queue.
type NotificationService struct {
	users  recipientFinder
	rooms  roomFinder
	queue  jobDispatcher
	sender Sender
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(users recipientFinder, rooms roomFinder, queue jobDispatcher, sender Sender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	return &NotificationService{users: users, rooms: rooms, queue: queue, sender: sender, logger: logger}
}

// BookingTransition builds the notification payload for a status change and
// enqueues it for delivery. Errors are returned so the caller can log them,
// but the caller never fails the transition on account of them.
func (s *NotificationService) BookingTransition(ctx context.Context, booking *models.Booking, event models.NotificationEvent, reason string) error {
	user, err := s.users.FindByID(ctx, booking.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("notification recipient %s not found", booking.UserID)
		}
		return fmt.Errorf("resolve notification recipient: %w", err)
	}

	roomNumber := booking.ClassroomID
	if room, err := s.rooms.FindByID(ctx, booking.ClassroomID); err == nil {
		roomNumber = room.RoomNumber
	}

	notification := models.BookingNotification{
		BookingID:      booking.ID,
		Event:          event,
		RecipientID:    user.ID,
		RecipientEmail: user.Email,
		RecipientName:  user.FullName,
		CourseName:     booking.CourseName,
		RoomNumber:     roomNumber,
		BookingDate:    booking.BookingDate,
		StartTime:      booking.StartTime,
		EndTime:        booking.EndTime,
		Reason:         reason,
	}

	if s.queue == nil {
		return s.sender.Send(ctx, notification)
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeBookingNotification,
		Payload: payload,
	})
}

// HandleJob is the queue handler for notification jobs.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	raw, ok := job.Payload.([]byte)
	if !ok {
		return fmt.Errorf("unexpected notification payload type %T", job.Payload)
	}
	var notification models.BookingNotification
	if err := json.Unmarshal(raw, &notification); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}
	return s.sender.Send(ctx, notification)
}
