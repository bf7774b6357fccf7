package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
)

type EducationOrganizationReader interface {
	ListEducationOrganizations(ctx context.Context) ([]model.EducationOrganizationDimension, error)
	GetEducationOrganization(ctx context.Context, key int) (*model.EducationOrganizationDimension, error)
	ListEducationOrganizationsModifiedSince(ctx context.Context, since time.Time) ([]model.EducationOrganizationDimension, error)
}

type EducationOrganizationHandler struct {
	reader EducationOrganizationReader
}

func NewEducationOrganizationHandler(reader EducationOrganizationReader) *EducationOrganizationHandler {
	return &EducationOrganizationHandler{reader: reader}
}

// List godoc
// GET /api/v1/education-organizations?modified_since=2021-01-01T00:00:00Z
func (h *EducationOrganizationHandler) List(c *gin.Context) {
	var (
		rows []model.EducationOrganizationDimension
		err  error
	)

	if raw := c.Query("modified_since"); raw != "" {
		since, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery,
				map[string]string{"modified_since": "must be an RFC 3339 timestamp"})
			return
		}
		rows, err = h.reader.ListEducationOrganizationsModifiedSince(c.Request.Context(), since.UTC())
	} else {
		rows, err = h.reader.ListEducationOrganizations(c.Request.Context())
	}
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, rows, len(rows))
}

// Get godoc
// GET /api/v1/education-organizations/:key
func (h *EducationOrganizationHandler) Get(c *gin.Context) {
	key, err := strconv.Atoi(c.Param("key"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	dim, err := h.reader.GetEducationOrganization(c.Request.Context(), key)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, dim)
}
