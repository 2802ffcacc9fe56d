package services

import (
	"context"

	"redgen/autofill"
	"redgen/config"
	"redgen/eventbus"
	"redgen/events"
	"redgen/models"
)

// PageScraper 는 상품 페이지를 읽어 ScrapedData 를 만든다. parser.Scraper 가 구현한다.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (models.ScrapedData, error)
}

// FormFiller 는 업로드 폼을 채운다. autofill.Filler 가 구현한다.
type FormFiller interface {
	Fill(ctx context.Context, url string, p events.FillFormPayload) (autofill.Result, error)
}

// RegisterPageScraper 는 SCRAPE_PAGE 메시지 핸들러를 등록한다.
// 스크랩 실패는 에러가 아니라 success=false 응답으로 돌려준다.
func RegisterPageScraper(bus *eventbus.Bus, scraper PageScraper) {
	eventbus.HandleJSON(bus, events.ScrapePage, func(ctx context.Context, req events.ScrapePageRequest) (events.ScrapePageResponse, error) {
		data, err := scraper.Scrape(ctx, req.URL)
		if err != nil {
			config.Log.Warnf("scrape %s failed: %v", req.URL, err)
			return events.ScrapePageResponse{Success: false, Error: err.Error()}, nil
		}
		if data.Images == nil {
			data.Images = []string{}
		}
		return events.ScrapePageResponse{Success: true, Data: &data}, nil
	})
}

// RegisterFormFiller 는 FILL_FORM 메시지 핸들러를 등록한다.
// 찾지 못한 필드는 건너뛰며 응답에는 포함하지 않는다.
func RegisterFormFiller(bus *eventbus.Bus, filler FormFiller) {
	eventbus.HandleJSON(bus, events.FillForm, func(ctx context.Context, req events.FillFormRequest) (events.FillFormResponse, error) {
		res, err := filler.Fill(ctx, req.URL, req.Payload)
		if err != nil {
			config.Log.Warnf("autofill failed: %v", err)
			return events.FillFormResponse{Success: false}, nil
		}
		if len(res.Skipped) > 0 {
			config.Log.Infof("autofill skipped missing fields: %v", res.Skipped)
		}
		return events.FillFormResponse{Success: true}, nil
	})
}
