package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smartcampus/campus-booking-api/internal/models"
	"github.com/smartcampus/campus-booking-api/internal/service"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
	"github.com/smartcampus/campus-booking-api/pkg/response"
)

// BookingHandler manages booking endpoints.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param userId query string false "Filter by requesting user"
// @Param classroomId query string false "Filter by classroom"
// @Param status query string false "Filter by status name"
// @Param dateFrom query string false "Earliest booking date"
// @Param dateTo query string false "Latest booking date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	filter.UserID = c.Query("userId")
	filter.ClassroomID = c.Query("classroomId")
	if status := c.Query("status"); status != "" {
		parsed, ok := models.ParseBookingStatus(status)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown booking status"))
			return
		}
		filter.Status = &parsed
	}
	filter.DateFrom = c.Query("dateFrom")
	filter.DateTo = c.Query("dateTo")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	bookings, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// CheckConflict godoc
// @Summary Check whether a slot is free
// @Tags Bookings
// @Produce json
// @Param classroomId query string true "Classroom ID"
// @Param date query string true "Booking date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param excludeId query string false "Booking to exclude from the check"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/check-conflict [get]
func (h *BookingHandler) CheckConflict(c *gin.Context) {
	classroomID := c.Query("classroomId")
	date := c.Query("date")
	start := c.Query("start")
	end := c.Query("end")
	if classroomID == "" || date == "" || start == "" || end == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classroomId, date, start and end are required"))
		return
	}
	hasConflict, err := h.service.CheckConflict(c.Request.Context(), classroomID, date, start, end, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflict": hasConflict}, nil)
}

// Create godoc
// @Summary Request a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Update godoc
// @Summary Edit a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.UpdateBookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.service.Update(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Approve godoc
// @Summary Approve a pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/approve [post]
func (h *BookingHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Reject godoc
// @Summary Reject a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.RejectBookingRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/reject [post]
func (h *BookingHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Cancel godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.CancelBookingRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}
