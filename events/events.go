package events

import (
	"redgen/listing"
	"redgen/models"
)

// MessageType 메시지 타입 정의. 코어가 주고받는 메시지는 이 두 가지뿐이다.
type MessageType string

const (
	ScrapePage MessageType = "SCRAPE_PAGE"
	FillForm   MessageType = "FILL_FORM"
)

// ScrapePageRequest 상품 페이지 스크랩 요청
type ScrapePageRequest struct {
	Type MessageType `json:"type"`
	URL  string      `json:"url"`
}

// ScrapePageResponse 스크랩 결과. 실패는 Success=false 로만 알린다.
type ScrapePageResponse struct {
	Success bool                `json:"success"`
	Data    *models.ScrapedData `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// FillFormPayload 업로드 폼에 채울 값 (tags 는 preserved 가 앞에 오는 평탄화 문자열)
type FillFormPayload = listing.AutofillPayload

// FillFormRequest 업로드 폼 자동 입력 요청
type FillFormRequest struct {
	Type    MessageType     `json:"type"`
	URL     string          `json:"url,omitempty"`
	Payload FillFormPayload `json:"payload"`
}

// FillFormResponse 자동 입력 결과. 필드별 실패는 보고하지 않는다.
type FillFormResponse struct {
	Success bool `json:"success"`
}

func NewScrapePageRequest(url string) ScrapePageRequest {
	return ScrapePageRequest{Type: ScrapePage, URL: url}
}

func NewFillFormRequest(url string, payload FillFormPayload) FillFormRequest {
	return FillFormRequest{Type: FillForm, URL: url, Payload: payload}
}
