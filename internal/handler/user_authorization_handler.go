package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
)

type UserAuthorizationReader interface {
	ListUserAuthorizations(ctx context.Context) ([]model.UserAuthorization, error)
	ListUserAuthorizationsByUser(ctx context.Context, userKey int) ([]model.UserAuthorization, error)
	ListUserAuthorizationsByDistrict(ctx context.Context, districtID int) ([]model.UserAuthorization, error)
}

type UserAuthorizationHandler struct {
	reader UserAuthorizationReader
}

func NewUserAuthorizationHandler(reader UserAuthorizationReader) *UserAuthorizationHandler {
	return &UserAuthorizationHandler{reader: reader}
}

// List godoc
// GET /api/v1/user-authorizations?user_key=100&district_id=255901
// Both filters may be combined.
func (h *UserAuthorizationHandler) List(c *gin.Context) {
	userKey, byUser, err := optionalIntQuery(c, "user_key")
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery,
			map[string]string{"user_key": "must be an integer"})
		return
	}
	districtID, byDistrict, err := optionalIntQuery(c, "district_id")
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery,
			map[string]string{"district_id": "must be an integer"})
		return
	}

	ctx := c.Request.Context()
	var rows []model.UserAuthorization
	switch {
	case byUser:
		rows, err = h.reader.ListUserAuthorizationsByUser(ctx, userKey)
		if err == nil && byDistrict {
			rows = inDistrict(rows, districtID)
		}
	case byDistrict:
		rows, err = h.reader.ListUserAuthorizationsByDistrict(ctx, districtID)
	default:
		rows, err = h.reader.ListUserAuthorizations(ctx)
	}
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessList(c, http.StatusOK, rows, len(rows))
}

func inDistrict(rows []model.UserAuthorization, districtID int) []model.UserAuthorization {
	out := make([]model.UserAuthorization, 0, len(rows))
	for _, r := range rows {
		if r.DistrictID != nil && *r.DistrictID == districtID {
			out = append(out, r)
		}
	}
	return out
}
