package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
	"github.com/stemsi/analytics-middletier/internal/validator"
)

type TokenIssuer interface {
	IssueToken(ctx context.Context, clientID, secret string) (*model.TokenResponse, error)
}

// AuthHandler handles the client-credentials token exchange.
type AuthHandler struct {
	issuer TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// Token godoc
// POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req model.TokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.issuer.IssueToken(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, token)
}
