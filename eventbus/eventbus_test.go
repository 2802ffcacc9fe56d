package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redgen/events"
	"redgen/models"
)

func TestCallRoundTrip(t *testing.T) {
	b := New()
	defer b.Close()

	HandleJSON(b, events.ScrapePage, func(ctx context.Context, req events.ScrapePageRequest) (events.ScrapePageResponse, error) {
		return events.ScrapePageResponse{Success: true, Data: &models.ScrapedData{Title: req.URL}}, nil
	})

	resp, err := Call[events.ScrapePageRequest, events.ScrapePageResponse](context.Background(), b, events.ScrapePage, events.NewScrapePageRequest("https://x/p"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "https://x/p", resp.Data.Title)
}

func TestNoHandler(t *testing.T) {
	b := New()
	defer b.Close()

	_, err := Call[events.FillFormRequest, events.FillFormResponse](context.Background(), b, events.FillForm, events.FillFormRequest{})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestOneRequestAtATime(t *testing.T) {
	b := New()
	defer b.Close()

	var inFlight, maxInFlight int32
	HandleJSON(b, events.FillForm, func(ctx context.Context, req events.FillFormRequest) (events.FillFormResponse, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return events.FillFormResponse{Success: true}, nil
	})

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := Call[events.FillFormRequest, events.FillFormResponse](context.Background(), b, events.FillForm, events.FillFormRequest{})
			errs <- err
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestIssuedRequestIsNotCancelled(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	HandleJSON(b, events.ScrapePage, func(hctx context.Context, req events.ScrapePageRequest) (events.ScrapePageResponse, error) {
		cancel()
		time.Sleep(10 * time.Millisecond)
		return events.ScrapePageResponse{Success: hctx.Err() == nil}, nil
	})

	resp, err := Call[events.ScrapePageRequest, events.ScrapePageResponse](ctx, b, events.ScrapePage, events.ScrapePageRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestHandlerErrorAndPanic(t *testing.T) {
	b := New()
	defer b.Close()

	boom := errors.New("boom")
	HandleJSON(b, events.ScrapePage, func(ctx context.Context, req events.ScrapePageRequest) (events.ScrapePageResponse, error) {
		return events.ScrapePageResponse{}, boom
	})
	HandleJSON(b, events.FillForm, func(ctx context.Context, req events.FillFormRequest) (events.FillFormResponse, error) {
		panic("bad")
	})

	_, err := Call[events.ScrapePageRequest, events.ScrapePageResponse](context.Background(), b, events.ScrapePage, events.ScrapePageRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = Call[events.FillFormRequest, events.FillFormResponse](context.Background(), b, events.FillForm, events.FillFormRequest{})
	assert.Error(t, err)
}

func TestRequestAfterClose(t *testing.T) {
	b := New()
	b.Close()

	_, err := b.Request(context.Background(), Message{Type: events.ScrapePage})
	assert.ErrorIs(t, err, ErrClosed)
}
