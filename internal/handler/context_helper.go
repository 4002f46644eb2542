package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-hours-api/internal/middleware"
	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
	"github.com/noah-isme/office-hours-api/pkg/response"
)

func principalFromContext(c *gin.Context) models.Principal {
	return middleware.PrincipalFrom(c)
}

// bindJSON decodes the body and writes a validation error on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// list writes a collection with its size in the response meta.
func list(c *gin.Context, items interface{}, count int, message string) {
	middleware.SetMeta(c, "count", count)
	response.JSON(c, http.StatusOK, items, message, middleware.ExtractMeta(c))
}
