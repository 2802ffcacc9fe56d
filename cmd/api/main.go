package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"redgen/autofill"
	"redgen/cmd/api/router"
	"redgen/config"
	"redgen/eventbus"
	"redgen/httpclient"
	"redgen/parser"
	"redgen/quota"
	"redgen/renderer"
	"redgen/repositories"
	"redgen/services"
	"redgen/store"
	"redgen/suggester"
)

// main 은 저장소, 메시지 버스, 브라우저 협력자, Gemini 클라이언트를 엮어 API 서버를 띄운다.
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New()
	defer bus.Close()

	browser := renderer.NewBrowser(cfg.Browser)
	defer browser.Close()

	// 서버 렌더링 페이지는 브라우저 없이 HTTP 로 가져온다.
	var source parser.HTMLSource = parser.HTTPSource{Client: httpclient.New(httpclient.Config{
		Timeout:   cfg.Browser.Timeout,
		UserAgent: cfg.Browser.UserAgent,
	})}
	if cfg.Browser.Render {
		source = browser
	}
	services.RegisterPageScraper(bus, parser.NewScraper(source, parser.Options{MaxTags: cfg.Scraper.MaxTags}))
	services.RegisterFormFiller(bus, autofill.New(browser, cfg.Autofill.UploadURL))

	limiter := quota.NewSuggestionQuotaLimiter(cfg.SuggestionQuota)
	sugg := suggester.New(cfg.Gemini, httpclient.New(httpclient.Config{Timeout: cfg.Gemini.Timeout}), limiter)

	svc := services.NewListingService(repositories.NewListingRepository(st), bus, sugg)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}).Handler(router.New(svc))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		config.Log.Infof("api server listening on %s (store=%s)", cfg.Server.Addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Log.Errorf("api server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	config.Log.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Log.Errorf("api server shutdown: %v", err)
	}
}
