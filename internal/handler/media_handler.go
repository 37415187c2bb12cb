package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
)

// MediaHandler handles supporting-document uploads.
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadDocument godoc
// POST /api/v1/media/upload
// Stores a PDF or image and returns the URL to put into a request's documentUrl.
func (h *MediaHandler) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.mediaService.SaveDocument(middleware.Actor(c).Role, file, header)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"url": url})
}
