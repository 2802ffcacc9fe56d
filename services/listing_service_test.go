package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redgen/autofill"
	"redgen/eventbus"
	"redgen/events"
	"redgen/listing"
	"redgen/models"
	"redgen/repositories"
	"redgen/store"
	"redgen/suggester"
	"redgen/tagset"
)

type fakeScraper struct {
	data models.ScrapedData
	err  error
}

func (f fakeScraper) Scrape(ctx context.Context, url string) (models.ScrapedData, error) {
	return f.data, f.err
}

type fakeFiller struct {
	mu   sync.Mutex
	got  []events.FillFormPayload
	err  error
	urls []string
}

func (f *fakeFiller) Fill(ctx context.Context, url string, p events.FillFormPayload) (autofill.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, p)
	f.urls = append(f.urls, url)
	return autofill.Result{Filled: []string{"title"}, Skipped: []string{"tags"}}, f.err
}

type fakeSuggester struct {
	result  listing.Suggestion
	err     error
	block   chan struct{}
	started chan struct{}
	inputs  []suggester.Input
}

func (f *fakeSuggester) Configured(s models.AppSettings) error {
	if s.APIKey == "" {
		return suggester.ErrMissingAPIKey
	}
	return nil
}

func (f *fakeSuggester) Suggest(ctx context.Context, in suggester.Input) (listing.Suggestion, error) {
	f.inputs = append(f.inputs, in)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

// failingStore fails every Set after failAfter successful ones.
type failingStore struct {
	store.Store
	mu        sync.Mutex
	remaining int
}

func (f *failingStore) Set(ctx context.Context, v store.Values) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining <= 0 {
		return errors.New("disk full")
	}
	f.remaining--
	return f.Store.Set(ctx, v)
}

type fixture struct {
	svc    *ListingService
	st     store.Store
	filler *fakeFiller
	sugg   *fakeSuggester
}

func newFixture(t *testing.T, st store.Store, scraper fakeScraper) *fixture {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	filler := &fakeFiller{}
	RegisterPageScraper(bus, scraper)
	RegisterFormFiller(bus, filler)

	sugg := &fakeSuggester{}
	svc := NewListingService(repositories.NewListingRepository(st), bus, sugg)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, st: st, filler: filler, sugg: sugg}
}

func memStore(t *testing.T) store.Store {
	st := store.NewMemory()
	t.Cleanup(func() { st.Close() })
	return st
}

func stored(t *testing.T, st store.Store) []models.Listing {
	t.Helper()
	state, err := repositories.NewListingRepository(st).Load(context.Background())
	require.NoError(t, err)
	return state.Listings
}

var scraped = models.ScrapedData{
	Title:       "Sunset Cat",
	Description: "A cat at sunset",
	Tags:        "cat, sunset",
	Images:      []string{"https://img/1.png"},
}

func TestCreateAndDelete(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{})
	ctx := context.Background()

	a, err := f.svc.Create(ctx)
	require.NoError(t, err)
	b, err := f.svc.Create(ctx)
	require.NoError(t, err)

	list := f.svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, int64(1700000000000), a.CreatedAt)
	assert.Len(t, stored(t, f.st), 2)

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, a.ID), ErrNotFound)
	_, err = f.svc.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, stored(t, f.st), 1)
}

func TestAddFromScrape(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{data: scraped})

	l, err := f.svc.AddFromScrape(context.Background(), "https://shop/p/1")
	require.NoError(t, err)
	assert.Equal(t, scraped, l.ScrapedData)
	assert.Equal(t, "Sunset Cat", l.GeneratedData.Title)
	assert.Equal(t, []string{"cat", "sunset"}, tagset.Texts(l.GeneratedData.Tags))
	assert.Equal(t, []models.Listing{l}, stored(t, f.st))
}

func TestScrapeFailureIsSoft(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{err: errors.New("selector not found")})
	ctx := context.Background()

	l, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.Scrape(ctx, l.ID, "https://shop/p/1")
	assert.ErrorIs(t, err, ErrScrapeFailed)
	got, _ := f.svc.Get(l.ID)
	assert.Equal(t, l, got)

	_, err = f.svc.AddFromScrape(ctx, "https://shop/p/1")
	assert.ErrorIs(t, err, ErrScrapeFailed)
	assert.Len(t, f.svc.List(), 1)

	_, err = f.svc.Scrape(ctx, "missing", "https://shop/p/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScrapeThenEditThenRescrape(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{data: scraped})
	ctx := context.Background()

	l, _ := f.svc.Create(ctx)
	l, err := f.svc.Scrape(ctx, l.ID, "u")
	require.NoError(t, err)
	assert.Equal(t, "Sunset Cat", l.GeneratedData.Title)

	l, err = f.svc.EditField(ctx, l.ID, listing.FieldTitle, "Mine")
	require.NoError(t, err)
	l, err = f.svc.Scrape(ctx, l.ID, "u")
	require.NoError(t, err)
	assert.Equal(t, "Mine", l.GeneratedData.Title)

	_, err = f.svc.EditField(ctx, l.ID, listing.Field("bogus"), "x")
	assert.ErrorIs(t, err, listing.ErrUnknownField)
}

func TestUpdateTagsPersistsBothFieldsInOneWrite(t *testing.T) {
	st := memStore(t)
	f := newFixture(t, st, fakeScraper{})
	ctx := context.Background()

	var mu sync.Mutex
	var snapshots []json.RawMessage
	_, err := st.OnChange(ctx, func(c store.Change) {
		mu.Lock()
		snapshots = append(snapshots, c.New)
		mu.Unlock()
	})
	require.NoError(t, err)

	l, _ := f.svc.Create(ctx)
	score := tagset.RiskScore(4)
	_, err = f.svc.UpdateTags(ctx, l.ID, listing.TagOp{Kind: listing.OpAdd, Text: "cat", Target: tagset.TargetActive, RiskScore: &score})
	require.NoError(t, err)
	l, err = f.svc.UpdateTags(ctx, l.ID, listing.TagOp{Kind: listing.OpDrop, Text: "cat", Target: tagset.TargetPreserved})
	require.NoError(t, err)
	assert.Equal(t, "cat", l.PreservedTags)
	assert.Empty(t, l.GeneratedData.Tags)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, raw := range snapshots {
		var listings []models.Listing
		require.NoError(t, json.Unmarshal(raw, &listings))
		for _, sl := range listings {
			assert.True(t, sl.Partitions().Disjoint())
		}
	}
}

func TestSaveFailureLeavesStateUnchanged(t *testing.T) {
	st := &failingStore{Store: memStore(t), remaining: 1}
	f := newFixture(t, st, fakeScraper{})
	ctx := context.Background()

	l, err := f.svc.Create(ctx)
	require.NoError(t, err)

	_, err = f.svc.EditField(ctx, l.ID, listing.FieldTitle, "new")
	assert.Error(t, err)
	got, _ := f.svc.Get(l.ID)
	assert.Equal(t, "", got.GeneratedData.Title)

	_, err = f.svc.Create(ctx)
	assert.Error(t, err)
	assert.Len(t, f.svc.List(), 1)
}

func TestOptimize(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{data: scraped})
	ctx := context.Background()
	_, err := f.svc.SaveSettings(ctx, models.AppSettings{APIKey: "k"})
	require.NoError(t, err)

	l, _ := f.svc.AddFromScrape(ctx, "u")
	l, _ = f.svc.UpdateTags(ctx, l.ID, listing.TagOp{Kind: listing.OpAdd, Text: "brand", Target: tagset.TargetPreserved})
	l, _ = f.svc.EditField(ctx, l.ID, listing.FieldCustomContext, "spooky")

	f.sugg.result = listing.Suggestion{
		Title:       "Retro Sunset Cat",
		Description: "New copy",
		Tags:        []tagset.Tag{{Text: "cat", RiskScore: 1}, {Text: "Garfield", RiskScore: 5}},
	}
	got, err := f.svc.Optimize(ctx, l.ID)
	require.NoError(t, err)

	assert.Equal(t, "Retro Sunset Cat", got.GeneratedData.Title)
	assert.Equal(t, f.sugg.result.Tags, got.GeneratedData.Tags)
	assert.Equal(t, "brand", got.PreservedTags)
	assert.Equal(t, scraped, got.ScrapedData)

	require.Len(t, f.sugg.inputs, 1)
	in := f.sugg.inputs[0]
	assert.Equal(t, "https://img/1.png", in.Image)
	assert.Equal(t, "spooky", in.CustomContext)
	assert.Equal(t, "cat, sunset", in.Current.Tags)
}

func TestOptimizeMissingKey(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{})
	l, _ := f.svc.Create(context.Background())

	_, err := f.svc.Optimize(context.Background(), l.ID)
	assert.ErrorIs(t, err, suggester.ErrMissingAPIKey)
	assert.Empty(t, f.sugg.inputs)

	_, err = f.svc.Optimize(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOptimizeFailureKeepsGeneratedData(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{data: scraped})
	ctx := context.Background()
	f.svc.SaveSettings(ctx, models.AppSettings{APIKey: "k"})
	l, _ := f.svc.AddFromScrape(ctx, "u")

	f.sugg.err = &suggester.UpstreamError{Status: 500, Message: "boom"}
	_, err := f.svc.Optimize(ctx, l.ID)
	var upstream *suggester.UpstreamError
	assert.ErrorAs(t, err, &upstream)

	got, _ := f.svc.Get(l.ID)
	assert.Equal(t, l, got)
}

func TestOptimizeInProgressAndDeletedDuringCall(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{})
	ctx := context.Background()
	f.svc.SaveSettings(ctx, models.AppSettings{APIKey: "k"})
	l, _ := f.svc.Create(ctx)

	f.sugg.block = make(chan struct{})
	f.sugg.started = make(chan struct{})
	f.sugg.result = listing.Suggestion{Title: "late"}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Optimize(ctx, l.ID)
		done <- err
	}()
	<-f.sugg.started

	_, err := f.svc.Optimize(ctx, l.ID)
	assert.ErrorIs(t, err, ErrOptimizeInProgress)

	// edits are not blocked by the call
	_, err = f.svc.EditField(ctx, l.ID, listing.FieldDescription, "edited meanwhile")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, l.ID))

	close(f.sugg.block)
	assert.ErrorIs(t, <-done, ErrNotFound)
	assert.Empty(t, f.svc.List())
}

func TestAutofill(t *testing.T) {
	f := newFixture(t, memStore(t), fakeScraper{})
	ctx := context.Background()

	l, _ := f.svc.Create(ctx)
	f.svc.EditField(ctx, l.ID, listing.FieldTitle, "T")
	f.svc.EditField(ctx, l.ID, listing.FieldDescription, "D")
	f.svc.UpdateTags(ctx, l.ID, listing.TagOp{Kind: listing.OpAdd, Text: "sunset", Target: tagset.TargetActive})
	f.svc.UpdateTags(ctx, l.ID, listing.TagOp{Kind: listing.OpAdd, Text: "brand", Target: tagset.TargetPreserved})

	payload, err := f.svc.Autofill(ctx, l.ID, "")
	require.NoError(t, err)
	want := events.FillFormPayload{Title: "T", Description: "D", Tags: "brand, sunset"}
	assert.Equal(t, want, payload)
	assert.Equal(t, []events.FillFormPayload{want}, f.filler.got)

	f.filler.err = errors.New("tab not addressable")
	_, err = f.svc.Autofill(ctx, l.ID, "")
	assert.ErrorIs(t, err, ErrAutofillFailed)

	_, err = f.svc.Autofill(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdoptsExternalChangeThroughMigration(t *testing.T) {
	st := memStore(t)
	f := newFixture(t, st, fakeScraper{})

	// an older build writes string tags and imagePreview
	require.NoError(t, st.Set(context.Background(), store.Values{
		store.KeyListings: json.RawMessage(`[{"id":"ext","imagePreview":"x.png","generatedData":{"title":"t","tags":"Nike,sunset"}}]`),
		store.KeySettings: json.RawMessage(`{"apiKey":"from-other-window"}`),
	}))

	require.Eventually(t, func() bool {
		_, err := f.svc.Get("ext")
		return err == nil && f.svc.Settings().APIKey == "from-other-window"
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := f.svc.Get("ext")
	assert.Equal(t, []string{"x.png"}, got.Images)
	assert.Equal(t, []tagset.Tag{{Text: "Nike", RiskScore: 1}, {Text: "sunset", RiskScore: 1}}, got.GeneratedData.Tags)
}
