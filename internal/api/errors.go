package api

import (
	"net/http"

	"divdataset/internal/errors"

	"github.com/gin-gonic/gin"
)

// FieldErrors maps request field names to their validation messages
type FieldErrors map[string][]string

// Add appends a message for field
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// HTTPStatus maps an application error code to a response status
func HTTPStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message} with the status of err
func (s *Server) respondError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed [%s]: %v", c.Request.Method, c.Request.URL.Path, errors.GetCode(err), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
