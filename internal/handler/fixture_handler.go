package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/response"
	"github.com/stemsi/analytics-middletier/internal/service"
)

// maxFixtureBytes bounds fixture uploads.
const maxFixtureBytes = 8 << 20

type FixtureStager interface {
	Stage(ctx context.Context, f *fixture.Fixture, replace bool) (*service.StageResult, error)
}

type FixtureHandler struct {
	stager FixtureStager
}

func NewFixtureHandler(stager FixtureStager) *FixtureHandler {
	return &FixtureHandler{stager: stager}
}

// Stage godoc
// POST /api/v1/fixtures/stage?replace=true
func (h *FixtureHandler) Stage(c *gin.Context) {
	replace, err := strconv.ParseBool(c.DefaultQuery("replace", "false"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery,
			map[string]string{"replace": "must be a boolean"})
		return
	}

	f, ok := readFixture(c)
	if !ok {
		return
	}

	res, err := h.stager.Stage(c.Request.Context(), f, replace)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// readBody reads a bounded request body, answering the request on failure.
func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFixtureBytes))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}
	return raw, true
}

func readFixture(c *gin.Context) (*fixture.Fixture, bool) {
	raw, ok := readBody(c)
	if !ok {
		return nil, false
	}
	f, err := fixture.LoadBytes(raw)
	if err != nil {
		failFromError(c, err)
		return nil, false
	}
	return f, true
}
