package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"redgen/config"
	"redgen/eventbus"
	"redgen/events"
	"redgen/listing"
	"redgen/models"
	"redgen/repositories"
	"redgen/suggester"
	"redgen/tagset"
)

var (
	ErrNotFound           = errors.New("listing not found")
	ErrOptimizeInProgress = errors.New("optimize already in progress for this listing")
	ErrScrapeFailed       = errors.New("scrape failed")
	ErrAutofillFailed     = errors.New("autofill failed")
)

// Suggester 는 AI 제안 서비스 추상화다. suggester.Client 가 구현한다.
type Suggester interface {
	// Configured 는 네트워크 호출 없이 설정 오류를 확인한다.
	Configured(settings models.AppSettings) error
	Suggest(ctx context.Context, in suggester.Input) (listing.Suggestion, error)
}

// ListingService 는 리스팅 컬렉션의 유일한 쓰기 경로다.
// - 모든 변경은 하나의 뮤텍스 아래에서 끝까지 실행되고, 다음 컬렉션 전체를 계산한 뒤 한 번만 저장한다.
// - 저장이 실패하면 메모리 상태도 바뀌지 않는다.
// - 스크랩/자동 입력/AI 호출 동안에는 락을 풀고, 결과는 그 시점의 리스팅에 적용한다.
// - 외부 변경 알림은 마이그레이션을 거친 뒤 메모리에 반영된다.
type ListingService struct {
	repo      *repositories.ListingRepository
	bus       *eventbus.Bus
	suggester Suggester
	now       func() time.Time

	mu         sync.Mutex
	listings   listing.Collection
	settings   models.AppSettings
	optimizing map[string]struct{}
	unwatch    func()
}

func NewListingService(repo *repositories.ListingRepository, bus *eventbus.Bus, sugg Suggester) *ListingService {
	return &ListingService{
		repo:       repo,
		bus:        bus,
		suggester:  sugg,
		now:        time.Now,
		listings:   listing.Collection{},
		optimizing: map[string]struct{}{},
	}
}

// Start 는 저장소에서 상태를 읽고 외부 변경 구독을 시작한다.
// 구독을 먼저 걸어 두어야 읽기와 구독 사이의 변경을 놓치지 않는다.
func (s *ListingService) Start(ctx context.Context) error {
	unwatch, err := s.repo.Watch(ctx, repositories.Watcher{
		OnListings: func(repositories.ListingsChange) { s.adopt() },
		OnSettings: func(repositories.SettingsChange) { s.adopt() },
	})
	if err != nil {
		return fmt.Errorf("watch store: %w", err)
	}
	s.mu.Lock()
	s.unwatch = unwatch
	s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Close 는 변경 구독을 해제한다.
func (s *ListingService) Close() {
	s.mu.Lock()
	unwatch := s.unwatch
	s.unwatch = nil
	s.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}

// adopt 는 변경 알림을 받으면 저장소의 최신 값을 다시 읽는다.
// 알림 값 대신 최신 값을 읽어야 순서가 뒤바뀐 알림이 새 상태를 덮어쓰지 않는다.
func (s *ListingService) adopt() {
	if err := s.reload(context.Background()); err != nil {
		config.Log.Errorf("listing service: adopt external change: %v", err)
	}
}

func (s *ListingService) reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.listings = listing.Collection(state.Listings)
	s.settings = state.Settings
	return nil
}

// List 는 최신순 리스팅 목록의 복사본을 반환한다.
func (s *ListingService) List() []models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l.Clone())
	}
	return out
}

func (s *ListingService) Get(id string) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings.Find(id)
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	return l.Clone(), nil
}

// commit 는 다음 컬렉션을 한 번에 저장하고, 성공한 경우에만 메모리에 반영한다. 락을 잡은 상태에서 호출한다.
func (s *ListingService) commit(ctx context.Context, next listing.Collection) error {
	if err := s.repo.SaveListings(ctx, next); err != nil {
		return err
	}
	s.listings = next
	return nil
}

// mutate 는 id 리스팅에 fn 을 적용하고 저장한다.
func (s *ListingService) mutate(ctx context.Context, id string, fn func(models.Listing) (models.Listing, error)) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings.Find(id)
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	updated, err := fn(l)
	if err != nil {
		return models.Listing{}, err
	}
	next, _ := s.listings.Replace(updated)
	if err := s.commit(ctx, next); err != nil {
		return models.Listing{}, err
	}
	return updated.Clone(), nil
}

// Create 는 빈 리스팅을 만들어 맨 앞에 추가한다.
func (s *ListingService) Create(ctx context.Context) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := listing.New(s.now())
	if err := s.commit(ctx, s.listings.Prepend(l)); err != nil {
		return models.Listing{}, err
	}
	return l.Clone(), nil
}

// AddFromScrape 는 상품 페이지를 스크랩한 결과로 채워진 리스팅을 만든다.
// 스크랩이 실패하면 아무것도 만들지 않는다.
func (s *ListingService) AddFromScrape(ctx context.Context, url string) (models.Listing, error) {
	scraped, err := s.scrape(ctx, url)
	if err != nil {
		return models.Listing{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l := listing.ApplyScrape(listing.New(s.now()), scraped)
	if err := s.commit(ctx, s.listings.Prepend(l)); err != nil {
		return models.Listing{}, err
	}
	return l.Clone(), nil
}

// Delete 는 리스팅을 컬렉션에서 제거한다. 다른 엔티티가 참조하지 않으므로 연쇄 삭제는 없다.
func (s *ListingService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.listings.Delete(id)
	if !ok {
		return ErrNotFound
	}
	return s.commit(ctx, next)
}

func (s *ListingService) EditField(ctx context.Context, id string, field listing.Field, value string) (models.Listing, error) {
	return s.mutate(ctx, id, func(l models.Listing) (models.Listing, error) {
		return listing.EditField(l, field, value)
	})
}

func (s *ListingService) SetExpanded(ctx context.Context, id string, expanded bool) (models.Listing, error) {
	return s.mutate(ctx, id, func(l models.Listing) (models.Listing, error) {
		return listing.SetExpanded(l, expanded), nil
	})
}

// UpdateTags 는 태그 연산을 적용한다. generatedData.tags 와 preservedTags 는 같은 저장에 함께 기록된다.
func (s *ListingService) UpdateTags(ctx context.Context, id string, op listing.TagOp) (models.Listing, error) {
	return s.mutate(ctx, id, func(l models.Listing) (models.Listing, error) {
		return listing.UpdateTags(l, op)
	})
}

// Scrape 는 url 을 스크랩해 리스팅의 scrapedData 를 교체한다.
// 실패는 소프트 실패로, 리스팅은 바뀌지 않고 ErrScrapeFailed 가 반환된다.
func (s *ListingService) Scrape(ctx context.Context, id, url string) (models.Listing, error) {
	if _, err := s.Get(id); err != nil {
		return models.Listing{}, err
	}
	scraped, err := s.scrape(ctx, url)
	if err != nil {
		return models.Listing{}, err
	}
	return s.mutate(ctx, id, func(l models.Listing) (models.Listing, error) {
		return listing.ApplyScrape(l, scraped), nil
	})
}

func (s *ListingService) scrape(ctx context.Context, url string) (models.ScrapedData, error) {
	resp, err := eventbus.Call[events.ScrapePageRequest, events.ScrapePageResponse](ctx, s.bus, events.ScrapePage, events.NewScrapePageRequest(url))
	if err != nil {
		return models.ScrapedData{}, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	if !resp.Success || resp.Data == nil {
		return models.ScrapedData{}, fmt.Errorf("%w: %s", ErrScrapeFailed, resp.Error)
	}
	return *resp.Data, nil
}

// Optimize 는 AI 제안을 받아 generatedData 를 교체한다.
// - API 키가 없으면 호출 전에 실패한다.
// - 같은 리스팅에 대한 두 번째 요청은 ErrOptimizeInProgress 로 거절한다.
// - 호출이 실패하면 리스팅은 그대로 남는다. 호출 중 삭제된 리스팅은 ErrNotFound 이다.
func (s *ListingService) Optimize(ctx context.Context, id string) (models.Listing, error) {
	s.mu.Lock()
	l, ok := s.listings.Find(id)
	if !ok {
		s.mu.Unlock()
		return models.Listing{}, ErrNotFound
	}
	if _, busy := s.optimizing[id]; busy {
		s.mu.Unlock()
		return models.Listing{}, ErrOptimizeInProgress
	}
	settings := s.settings
	if err := s.suggester.Configured(settings); err != nil {
		s.mu.Unlock()
		return models.Listing{}, err
	}
	s.optimizing[id] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.optimizing, id)
		s.mu.Unlock()
	}()

	// 한 번 시작한 호출은 클라이언트가 끊겨도 끝까지 진행한다.
	suggestion, err := s.suggester.Suggest(context.WithoutCancel(ctx), suggestionInput(settings, l))
	if err != nil {
		config.Log.Warnf("listing service: optimize %s failed: %v", id, err)
		return models.Listing{}, err
	}

	return s.mutate(ctx, id, func(current models.Listing) (models.Listing, error) {
		return listing.ApplySuggestion(current, suggestion), nil
	})
}

// suggestionInput 은 스크랩 원본을 참고 데이터로 쓰고, 비어 있는 항목은 현재 최적화본으로 채운다.
func suggestionInput(settings models.AppSettings, l models.Listing) suggester.Input {
	current := suggester.CurrentData{
		Title:       l.ScrapedData.Title,
		Description: l.ScrapedData.Description,
		Tags:        l.ScrapedData.Tags,
	}
	if current.Title == "" {
		current.Title = l.GeneratedData.Title
	}
	if current.Description == "" {
		current.Description = l.GeneratedData.Description
	}
	if current.Tags == "" {
		current.Tags = tagset.Serialize(tagset.Texts(l.GeneratedData.Tags))
	}

	in := suggester.Input{Settings: settings, CustomContext: l.CustomContext, Current: current}
	if len(l.Images) > 0 {
		in.Image = l.Images[0]
	}
	return in
}

// Autofill 는 리스팅을 업로드 폼에 채운다. preserved 태그가 항상 먼저 온다.
// url 이 비어 있으면 설정된 업로드 페이지를 연다.
func (s *ListingService) Autofill(ctx context.Context, id, url string) (events.FillFormPayload, error) {
	l, err := s.Get(id)
	if err != nil {
		return events.FillFormPayload{}, err
	}
	payload := listing.Autofill(l)

	resp, err := eventbus.Call[events.FillFormRequest, events.FillFormResponse](ctx, s.bus, events.FillForm, events.NewFillFormRequest(url, payload))
	if err != nil {
		return payload, fmt.Errorf("%w: %v", ErrAutofillFailed, err)
	}
	if !resp.Success {
		return payload, ErrAutofillFailed
	}
	return payload, nil
}

func (s *ListingService) Settings() models.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SaveSettings 는 설정을 저장한다. 저장에 성공한 경우에만 메모리 값이 바뀐다.
func (s *ListingService) SaveSettings(ctx context.Context, settings models.AppSettings) (models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return models.AppSettings{}, err
	}
	s.settings = settings
	return settings, nil
}
