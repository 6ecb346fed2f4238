package http

import (
	"errors"
	"net/http"

	"github.com/cryptofolio/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, apiResponse{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, apiResponse{
		Code:    status,
		Message: message,
	})
}

// ServiceError maps typed service failures onto HTTP statuses. Unrecognized
// errors become opaque 500s.
func ServiceError(c *gin.Context, err error) {
	var unsupportedErr *service.UnsupportedAssetValueError

	switch {
	case errors.Is(err, service.ErrInvalidAsset),
		errors.Is(err, service.ErrInsufficientAmount),
		errors.Is(err, service.ErrUnknownAssetInTargets),
		errors.Is(err, service.ErrInvalidPercentages):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &unsupportedErr):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrHoldingNotFound),
		errors.Is(err, service.ErrNothingToRebalance):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrRebalanceConflict):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenRevoked):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRateUnavailable):
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal error")
	}
}
