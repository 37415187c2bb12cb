package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/validator"
)

// ScheduleHandler handles the duty roster.
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// ListSchedules godoc
// GET /api/v1/schedules
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.scheduleService.List(c.Request.Context(), middleware.Actor(c).Role)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": schedules})
}

// CreateSchedule godoc
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req model.CreateScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	schedule, err := h.scheduleService.Create(c.Request.Context(), middleware.Actor(c).Role, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"schedule": schedule})
}

// UpdateSchedule godoc
// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req model.UpdateScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	schedule, err := h.scheduleService.Update(c.Request.Context(), middleware.Actor(c).Role, c.Param("id"), req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedule": schedule})
}

// DeleteSchedule godoc
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	if err := h.scheduleService.Delete(c.Request.Context(), middleware.Actor(c).Role, c.Param("id")); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "schedule deleted successfully"})
}
