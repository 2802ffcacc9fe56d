package dto

import (
	"redgen/events"
	"redgen/models"
	"redgen/tagset"
)

// ListingDTO 는 저장 형식 그대로의 리스팅에 화면 표시용 필드를 더한 응답이다.
type ListingDTO struct {
	models.Listing
	DisplayTitle string `json:"displayTitle"`
	// AutofillTags 는 업로드 폼에 들어갈 태그 문자열이다. preserved 가 먼저 온다.
	AutofillTags string `json:"autofillTags"`
}

func NewListingDTO(l models.Listing) ListingDTO {
	return ListingDTO{
		Listing:      l,
		DisplayTitle: l.DisplayTitle(),
		AutofillTags: l.Partitions().FlattenString(),
	}
}

func NewListingDTOs(ls []models.Listing) []ListingDTO {
	out := make([]ListingDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, NewListingDTO(l))
	}
	return out
}

type ListListingsResponseDTO struct {
	Data  []ListingDTO `json:"data"`
	Total int          `json:"total"`
}

// URLRequestDTO 는 스크랩할 상품 페이지 주소다.
type URLRequestDTO struct {
	URL string `json:"url" binding:"required,url"`
}

// AutofillRequestDTO 의 URL 이 비어 있으면 설정된 업로드 페이지를 쓴다.
type AutofillRequestDTO struct {
	URL string `json:"url" binding:"omitempty,url"`
}

type AutofillResponseDTO struct {
	Payload events.FillFormPayload `json:"payload"`
}

type EditFieldRequestDTO struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type SetExpandedRequestDTO struct {
	Expanded *bool `json:"expanded" binding:"required"`
}

// TagOpRequestDTO 는 태그 추가/삭제/이동 요청이다.
// target 은 active(또는 main) 혹은 preserved 이고, remove 에서는 무시된다.
type TagOpRequestDTO struct {
	Op        string            `json:"op" binding:"required,oneof=add remove drop"`
	Text      string            `json:"text" binding:"required"`
	Target    string            `json:"target"`
	RiskScore *tagset.RiskScore `json:"riskScore"`
}
