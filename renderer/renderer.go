package renderer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"redgen/config"
)

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Browser 는 하나의 chromedp allocator 를 공유하며 요청마다 새 탭을 연다.
// RemoteURL 이 있으면 이미 떠 있는 Chrome(devtools websocket)에 붙고,
// 없으면 로컬 실행 파일을 띄운다.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	closeOnce   sync.Once
}

func ExecAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = USER_AGENT
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

func NewBrowser(cfg config.BrowserConfig) *Browser {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var allocCtx context.Context
	var cancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), ExecAllocatorOptions(cfg)...)
	}
	return &Browser{allocCtx: allocCtx, allocCancel: cancel, timeout: timeout}
}

// Run 은 새 탭에서 actions 를 실행한다. 탭은 끝나면 닫힌다.
func (b *Browser) Run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// 호출자 취소를 탭으로 전달한다.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	return chromedp.Run(tabCtx, actions...)
}

// RenderHTML 은 JS 렌더링이 끝난 페이지의 HTML 을 돌려준다.
func (b *Browser) RenderHTML(ctx context.Context, url string) (string, error) {
	var htmlContent string
	err := b.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1*time.Second),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", err
	}
	return htmlContent, nil
}

func (b *Browser) Close() {
	b.closeOnce.Do(b.allocCancel)
}
