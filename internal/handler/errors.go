package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/response"
	"github.com/stemsi/analytics-middletier/internal/service"
)

// failFromError maps service errors onto the response envelope.
func failFromError(c *gin.Context, err error) {
	var invalid *fixture.InvalidError
	switch {
	case errors.As(err, &invalid):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, invalid.Fields)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrReportNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrReportNotReady)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// optionalIntQuery parses an integer query parameter; ok is false when the
// parameter is absent.
func optionalIntQuery(c *gin.Context, name string) (value int, ok bool, err error) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}
