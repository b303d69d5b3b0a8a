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

// ClassroomHandler manages classroom endpoints.
type ClassroomHandler struct {
	service *service.ClassroomService
}

// NewClassroomHandler constructs handler.
func NewClassroomHandler(svc *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{service: svc}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param roomType query string false "Filter by room type"
// @Param building query string false "Filter by building"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	var filter models.ClassroomFilter
	filter.RoomType = c.Query("roomType")
	filter.Building = c.Query("building")
	if active := c.Query("active"); active != "" {
		if parsed, err := strconv.ParseBool(active); err == nil {
			filter.Active = &parsed
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	classrooms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination)
}

// Get godoc
// @Summary Get a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	classroom, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// FindAvailable godoc
// @Summary List classrooms free during a time slot
// @Tags Classrooms
// @Produce json
// @Param date query string true "Booking date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param roomType query string false "Filter by room type"
// @Success 200 {object} response.Envelope
// @Router /classrooms/available [get]
func (h *ClassroomHandler) FindAvailable(c *gin.Context) {
	var query models.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return
	}
	classrooms, err := h.service.FindAvailable(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

// Create godoc
// @Summary Create a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classroom, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Update godoc
// @Summary Update a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.UpdateClassroomRequest true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req service.UpdateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classroom, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Delete godoc
// @Summary Deactivate a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 204
// @Security BearerAuth
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
