package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/session"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// failService maps a service error onto the response envelope. Unknown errors
// are attached to the gin context so the request logger records them.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrStudentNotFound), errors.Is(err, store.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidField):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidField)
	case errors.Is(err, service.ErrInvalidStatus):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidStatus)
	case errors.Is(err, service.ErrInvalidSchedule):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSchedule)
	case errors.Is(err, service.ErrInvalidRosterHeader), errors.Is(err, service.ErrUnsupportedRoster):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRoster)
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrNotSignedIn):
		response.Fail(c, http.StatusUnauthorized, response.ErrNotSignedIn)
	case errors.Is(err, session.ErrAccountNotProvisioned):
		response.Fail(c, http.StatusForbidden, response.ErrAccountNotProvisioned)
	case errors.Is(err, repository.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrPartialProvisioning):
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrPartialProvisioning)
	case errors.Is(err, service.ErrFontMissing):
		_ = c.Error(err)
		response.Fail(c, http.StatusServiceUnavailable, response.ErrReportUnavailable)
	case errors.Is(err, store.ErrDisconnected), errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
