package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"redgen/config"
)

// Config는 HTTP 클라이언트 공통 설정을 캡슐화한다.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// Transport 가 nil 이면 http.DefaultTransport 를 사용한다.
	Transport http.RoundTripper
}

type requestIDKey struct{}

// WithRequestID 는 아웃바운드 호출에 전달할 요청 ID 를 ctx 에 담는다.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 는 ctx 에 담긴 요청 ID 를 돌려준다. 없으면 빈 문자열이다.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// loggingRoundTripper는 모든 아웃바운드 HTTP 호출에 대해 공통 로깅과
// X-Request-Id 헤더 트레이싱을 수행한다.
type loggingRoundTripper struct {
	inner     http.RoundTripper
	userAgent string
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := RequestID(req.Context())
	if requestID == "" {
		requestID = req.Header.Get("X-Request-Id")
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	// RoundTripper 는 원본 요청을 수정하면 안 되므로 복제본에 헤더를 단다.
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-Id", requestID)
	if l.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	// 쿼리에는 API 키가 실릴 수 있으므로 경로까지만 남긴다.
	target := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	resp, err := l.inner.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		config.ErrorWithFields("httpclient request failed", config.Fields{
			"method":     req.Method,
			"url":        target,
			"duration":   duration.String(),
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, err
	}

	config.Log.Debugf("httpclient %s %s status=%d duration=%s request_id=%s",
		req.Method, target, resp.StatusCode, duration, requestID)
	return resp, nil
}

// New는 주어진 설정으로 http.Client를 생성한다.
// Timeout이 0이면 기본값 10초를 사용한다.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: transport, userAgent: cfg.UserAgent},
	}
}

// NewDefault는 공통 기본 설정(Timeout 10초)을 사용하는 http.Client를 생성한다.
func NewDefault() *http.Client {
	return New(Config{})
}
