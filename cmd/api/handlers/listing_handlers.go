package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"redgen/cmd/api/dto"
	"redgen/listing"
	"redgen/services"
	"redgen/tagset"
)

// ListListingsHandler 는 최신 순으로 정렬된 리스팅 목록을 반환한다.
func ListListingsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := svc.List()
		c.JSON(http.StatusOK, dto.ListListingsResponseDTO{Data: dto.NewListingDTOs(items), Total: len(items)})
	}
}

func GetListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.Get(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

// CreateListingHandler 는 빈 리스팅을 목록 맨 앞에 만든다.
func CreateListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.Create(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewListingDTO(l))
	}
}

// CreateFromPageHandler 는 상품 페이지를 스크랩해 미리 채워진 리스팅을 만든다.
func CreateFromPageHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.URLRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		l, err := svc.AddFromScrape(c.Request.Context(), req.URL)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewListingDTO(l))
	}
}

func DeleteListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "deleted"})
	}
}

// EditFieldHandler 는 title, description, tags, customContext 중 하나를 수정한다.
func EditFieldHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.EditFieldRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		l, err := svc.EditField(c.Request.Context(), c.Param("id"), listing.Field(req.Field), req.Value)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

func SetExpandedHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SetExpandedRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		l, err := svc.SetExpanded(c.Request.Context(), c.Param("id"), *req.Expanded)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

// UpdateTagsHandler 는 태그 추가/삭제/드래그 이동을 처리한다.
func UpdateTagsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.TagOpRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		op := listing.TagOp{Kind: listing.OpKind(req.Op), Text: req.Text, RiskScore: req.RiskScore}
		if op.Kind != listing.OpRemove {
			target, err := tagset.ParseTarget(req.Target)
			if err != nil {
				badRequest(c, err)
				return
			}
			op.Target = target
		}
		l, err := svc.UpdateTags(c.Request.Context(), c.Param("id"), op)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

// ScrapeListingHandler 는 상품 페이지를 다시 스크랩한다. 실패해도 리스팅은 그대로다.
func ScrapeListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.URLRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		l, err := svc.Scrape(c.Request.Context(), c.Param("id"), req.URL)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

// OptimizeListingHandler 는 AI 제안으로 최적화본을 교체한다.
func OptimizeListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := svc.Optimize(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListingDTO(l))
	}
}

// AutofillListingHandler 는 업로드 폼을 채운다. 바디는 생략할 수 있다.
func AutofillListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AutofillRequestDTO
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
		}
		payload, err := svc.Autofill(c.Request.Context(), c.Param("id"), req.URL)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.AutofillResponseDTO{Payload: payload})
	}
}
