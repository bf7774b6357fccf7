package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/analytics-middletier/internal/fixture"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
)

type Verifier interface {
	Verify(ctx context.Context, f *fixture.Fixture) (*model.VerificationReport, error)
	Enqueue(ctx context.Context, raw []byte) (string, error)
	Result(ctx context.Context, id string) (*model.VerificationReport, error)
}

type VerificationHandler struct {
	verifier Verifier
}

func NewVerificationHandler(verifier Verifier) *VerificationHandler {
	return &VerificationHandler{verifier: verifier}
}

// Verify godoc
// POST /api/v1/verifications
// Answers 200 with the report whether or not the views matched.
func (h *VerificationHandler) Verify(c *gin.Context) {
	f, ok := readFixture(c)
	if !ok {
		return
	}

	report, err := h.verifier.Verify(c.Request.Context(), f)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// Enqueue godoc
// POST /api/v1/verifications/async
func (h *VerificationHandler) Enqueue(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}

	id, err := h.verifier.Enqueue(c.Request.Context(), raw)
	if err != nil {
		failFromError(c, err)
		return
	}
	c.Header("Location", "/api/v1/verifications/"+id)
	response.Success(c, http.StatusAccepted, model.VerificationAccepted{ID: id, Status: "queued"})
}

// Result godoc
// GET /api/v1/verifications/:id
func (h *VerificationHandler) Result(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	report, err := h.verifier.Result(c.Request.Context(), id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
