package response

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the standardized API response envelope.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code     ErrCode           `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect *Redirect         `json:"redirect,omitempty"`
}

// Redirect tells the client which view to navigate to. From is the location
// to return to after signing in.
type Redirect struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
}

// Pagination holds pagination information.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata includes request tracing and timing.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ────────────────────────────────────────────────────────────────────────────
// Success
// ────────────────────────────────────────────────────────────────────────────

// Success sends a successful JSON response with the given status code and data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{Data: data, Metadata: buildMetadata(c)})
}

// SuccessWithPagination sends a successful response with pagination metadata.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	c.JSON(statusCode, Response{Data: data, Pagination: pagination, Metadata: buildMetadata(c)})
}

// Attachment sends body as a download named {name}_{YYYY-MM-DD}.{ext}.
func Attachment(c *gin.Context, name, ext, contentType string, body []byte) {
	filename := fmt.Sprintf("%s_%s.%s", name, time.Now().Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, body)
}

// ────────────────────────────────────────────────────────────────────────────
// Failure
// ────────────────────────────────────────────────────────────────────────────

// Fail sends an error response with an error code and no field-level details.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	fail(c, statusCode, &ErrorBody{Code: code}, false)
}

// FailWithFields sends an error response with field-level validation details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	fail(c, statusCode, &ErrorBody{Code: code, Fields: fields}, false)
}

// FailRetry sends an error response for a condition expected to clear, with
// a Retry-After header.
func FailRetry(c *gin.Context, statusCode int, code ErrCode, after time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(after.Seconds())))
	fail(c, statusCode, &ErrorBody{Code: code}, false)
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	fail(c, statusCode, &ErrorBody{Code: code}, true)
}

// AbortFailRetry is FailRetry for middleware.
func AbortFailRetry(c *gin.Context, statusCode int, code ErrCode, after time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(after.Seconds())))
	fail(c, statusCode, &ErrorBody{Code: code}, true)
}

// AbortRedirect aborts the middleware chain with an error that carries a
// navigation target.
func AbortRedirect(c *gin.Context, statusCode int, code ErrCode, to, from string) {
	fail(c, statusCode, &ErrorBody{Code: code, Redirect: &Redirect{To: to, From: from}}, true)
}

func fail(c *gin.Context, statusCode int, body *ErrorBody, abort bool) {
	body.Message = GetMessage(body.Code)
	res := Response{Error: body, Metadata: buildMetadata(c)}
	if abort {
		c.AbortWithStatusJSON(statusCode, res)
		return
	}
	c.JSON(statusCode, res)
}

func buildMetadata(c *gin.Context) Metadata {
	return Metadata{
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
