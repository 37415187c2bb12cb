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

// StudentHandler handles the student roster.
type StudentHandler struct {
	rosterService *service.RosterService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(rosterService *service.RosterService) *StudentHandler {
	return &StudentHandler{rosterService: rosterService}
}

// ListStudents godoc
// GET /api/v1/students
// Lists the roster. Submitters pick a student from it when creating a request.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.rosterService.List(c.Request.Context(), middleware.Actor(c).Role)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// CreateStudent godoc
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.rosterService.Create(c.Request.Context(), middleware.Actor(c).Role, req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudentField godoc
// PATCH /api/v1/students/:id
func (h *StudentHandler) UpdateStudentField(c *gin.Context) {
	var req model.UpdateStudentFieldRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := c.Param("id")
	if err := h.rosterService.UpdateField(c.Request.Context(), middleware.Actor(c).Role, id, req.Field, req.Value); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "field": req.Field, "value": req.Value})
}

// DeleteStudent godoc
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	if err := h.rosterService.Delete(c.Request.Context(), middleware.Actor(c).Role, c.Param("id")); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}

// ImportStudents godoc
// POST /api/v1/students/import
// Appends the rows of an uploaded CSV or XLSX roster (multipart field "file").
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	result, err := h.rosterService.Import(c.Request.Context(), middleware.Actor(c).Role, header.Filename, file)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
