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

// PerizinanHandler handles leave request endpoints shared by all dashboards.
type PerizinanHandler struct {
	perizinanService *service.PerizinanService
}

// NewPerizinanHandler creates a new PerizinanHandler.
func NewPerizinanHandler(perizinanService *service.PerizinanService) *PerizinanHandler {
	return &PerizinanHandler{perizinanService: perizinanService}
}

// ListPerizinan godoc
// GET /api/v1/perizinan
// Lists requests enriched from the roster, filtered, sorted and paginated.
// start and end bound the departure time as strings; a bare end date such as
// 2024-01-31 excludes departures later that day, so clients send
// 2024-01-31T23:59 for the whole day.
func (h *PerizinanHandler) ListPerizinan(c *gin.Context) {
	filter, sortSpec, fields := parseListQuery(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	page, perPage := parsePage(c)

	result, err := h.perizinanService.Query(c.Request.Context(), middleware.Actor(c).Role, filter, sortSpec, page, perPage)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"requests": result.Items}, &response.Pagination{
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalItems: result.Total,
		TotalPages: result.TotalPages,
	})
}

// GetPerizinan godoc
// GET /api/v1/perizinan/:id
func (h *PerizinanHandler) GetPerizinan(c *gin.Context) {
	p, err := h.perizinanService.Get(c.Request.Context(), middleware.Actor(c).Role, c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"request": p})
}

// CreatePerizinan godoc
// POST /api/v1/perizinan
// Submits a new request. The stored status is always pending.
func (h *PerizinanHandler) CreatePerizinan(c *gin.Context) {
	var req model.CreatePerizinanRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	p, err := h.perizinanService.Create(c.Request.Context(), middleware.Actor(c).Role, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"request": p})
}

// UpdatePerizinanField godoc
// PATCH /api/v1/perizinan/:id
// Edits exactly one field. Status is changed through the status endpoint.
func (h *PerizinanHandler) UpdatePerizinanField(c *gin.Context) {
	var req model.UpdatePerizinanFieldRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := c.Param("id")
	if err := h.perizinanService.SetField(c.Request.Context(), middleware.Actor(c).Role, id, req.Field, req.Value); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "field": req.Field, "value": req.Value})
}

// UpdatePerizinanStatus godoc
// PUT /api/v1/perizinan/:id/status
// Approves or rejects a request.
func (h *PerizinanHandler) UpdatePerizinanStatus(c *gin.Context) {
	var req model.UpdatePerizinanStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := c.Param("id")
	if err := h.perizinanService.SetStatus(c.Request.Context(), middleware.Actor(c).Role, id, req.Status); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// DeletePerizinan godoc
// DELETE /api/v1/perizinan/:id
// Deleting an absent request succeeds.
func (h *PerizinanHandler) DeletePerizinan(c *gin.Context) {
	if err := h.perizinanService.Remove(c.Request.Context(), middleware.Actor(c).Role, c.Param("id")); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "request deleted successfully"})
}
