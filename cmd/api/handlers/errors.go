package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"redgen/cmd/api/dto"
	"redgen/config"
	"redgen/listing"
	"redgen/quota"
	"redgen/services"
	"redgen/suggester"
	"redgen/tagset"
)

// statusFor 는 서비스 에러를 HTTP 상태 코드로 바꾼다.
func statusFor(err error) int {
	var upstream *suggester.UpstreamError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrOptimizeInProgress):
		return http.StatusConflict
	case errors.Is(err, suggester.ErrMissingAPIKey),
		errors.Is(err, listing.ErrUnknownField),
		errors.Is(err, listing.ErrUnknownOp),
		errors.Is(err, tagset.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, quota.ErrDailyQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &upstream),
		errors.Is(err, suggester.ErrEmptyResponse),
		errors.Is(err, suggester.ErrMalformedResponse),
		errors.Is(err, services.ErrScrapeFailed),
		errors.Is(err, services.ErrAutofillFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		config.Log.Errorf("handler %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, dto.ErrorResponseDTO{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
}
