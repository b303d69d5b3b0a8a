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

// ScheduleHandler manages recurring schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param dayOfWeek query string false "Filter by day"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var filter models.ScheduleFilter
	filter.TeacherID = c.Query("teacherId")
	filter.ClassroomID = c.Query("classroomId")
	filter.DayOfWeek = c.Query("dayOfWeek")
	filter.Semester = c.Query("semester")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ListByTeacher godoc
// @Summary List schedules by teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedules [get]
func (h *ScheduleHandler) ListByTeacher(c *gin.Context) {
	schedules, err := h.service.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// ListByClassroom godoc
// @Summary List schedules by classroom
// @Tags Schedules
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/schedules [get]
func (h *ScheduleHandler) ListByClassroom(c *gin.Context) {
	schedules, err := h.service.ListByClassroom(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// CheckConflict godoc
// @Summary Check whether a recurring slot is free
// @Tags Schedules
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param classroomId query string true "Classroom ID"
// @Param dayOfWeek query string true "Day of week"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param excludeId query string false "Schedule to exclude from the check"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/check-conflict [get]
func (h *ScheduleHandler) CheckConflict(c *gin.Context) {
	teacherID := c.Query("teacherId")
	classroomID := c.Query("classroomId")
	day := c.Query("dayOfWeek")
	start := c.Query("start")
	end := c.Query("end")
	if teacherID == "" || classroomID == "" || day == "" || start == "" || end == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacherId, classroomId, dayOfWeek, start and end are required"))
		return
	}
	hasConflict, err := h.service.CheckConflict(c.Request.Context(), teacherID, classroomID, day, start, end, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflict": hasConflict}, nil)
}

// Create godoc
// @Summary Create schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204
// @Security BearerAuth
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
