package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/validator"
)

// TeacherHandler handles staff account management.
type TeacherHandler struct {
	provisioningService *service.ProvisioningService
	identities          service.IdentityLister
}

// NewTeacherHandler creates a new TeacherHandler.
func NewTeacherHandler(provisioningService *service.ProvisioningService, identities service.IdentityLister) *TeacherHandler {
	return &TeacherHandler{
		provisioningService: provisioningService,
		identities:          identities,
	}
}

// ListTeachers godoc
// GET /api/v1/teachers
func (h *TeacherHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.provisioningService.ListTeachers(c.Request.Context(), middleware.Actor(c).Role)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"teachers": teachers})
}

// CreateTeacher godoc
// POST /api/v1/teachers
// Provisions identity, role record and account record in one go.
func (h *TeacherHandler) CreateTeacher(c *gin.Context) {
	var req model.CreateTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.provisioningService.Provision(c.Request.Context(), middleware.Actor(c).Role, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"teacher": teacher})
}

// UpdateTeacherField godoc
// PATCH /api/v1/teachers/:id
// A role change applies from the teacher's next sign-in.
func (h *TeacherHandler) UpdateTeacherField(c *gin.Context) {
	var req model.UpdateTeacherFieldRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := c.Param("id")
	if err := h.provisioningService.UpdateTeacherField(c.Request.Context(), middleware.Actor(c).Role, id, req.Field, req.Value); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "field": req.Field, "value": req.Value})
}

// DeleteTeacher godoc
// DELETE /api/v1/teachers/:id
// Requires the acting admin's password in the body.
func (h *TeacherHandler) DeleteTeacher(c *gin.Context) {
	var req model.DeleteTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.provisioningService.DeleteTeacher(c.Request.Context(), middleware.Actor(c).Role, middleware.SessionID(c), req.Password, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusForbidden, response.ErrReauthRequired)
			return
		}
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "teacher deleted successfully"})
}

// AuditTeachers godoc
// GET /api/v1/teachers/audit
// Lists records left behind by partial provisioning.
func (h *TeacherHandler) AuditTeachers(c *gin.Context) {
	report, err := h.provisioningService.Audit(c.Request.Context(), h.identities)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"audit": report, "clean": report.Clean()})
}
