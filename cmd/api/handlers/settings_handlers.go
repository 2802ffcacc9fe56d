package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"redgen/models"
	"redgen/services"
)

func GetSettingsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Settings())
	}
}

// SaveSettingsHandler 는 설정 전체를 교체한다. 빈 프롬프트는 기본 프롬프트로 동작한다.
func SaveSettingsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AppSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		saved, err := svc.SaveSettings(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}
