package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"redgen/config"
)

// ErrDailyQuotaExceeded 는 오늘 치 제안 호출을 다 쓴 뒤의 요청에 반환된다.
var ErrDailyQuotaExceeded = errors.New("daily suggestion quota exceeded")

// SuggestionQuotaLimiter 는 Gemini 제안 호출의 간격과 하루 총량을 제한한다.
// 카운터는 프로세스 메모리에만 있다. 날짜 경계는 UTC 기준이다.
type SuggestionQuotaLimiter struct {
	mu sync.Mutex

	perDay int
	gap    time.Duration

	day  string
	used int
	next time.Time

	now func() time.Time
}

// NewSuggestionQuotaLimiter 는 suggestion_quota 설정을 읽는다. 0 이하 값은 해당 제한을 끈다.
func NewSuggestionQuotaLimiter(q config.SuggestionQuotaConfig) *SuggestionQuotaLimiter {
	l := &SuggestionQuotaLimiter{perDay: max(q.RequestsPerDay, 0), now: time.Now}
	if q.RequestsPerMinute > 0 {
		l.gap = time.Minute / time.Duration(q.RequestsPerMinute)
	}
	return l
}

// WaitAndReserve 는 호출 한 건을 예약한다. 간격이 아직 안 찼으면 기다렸다가 다시 시도한다.
// 하루 총량을 넘으면 기다리지 않고 ErrDailyQuotaExceeded, 기다리는 중 ctx 가 끝나면 ctx.Err() 이다.
func (l *SuggestionQuotaLimiter) WaitAndReserve(ctx context.Context) error {
	for {
		wait, err := l.tryReserve()
		if err != nil || wait <= 0 {
			return err
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// tryReserve 는 지금 예약할 수 있으면 카운터를 올리고 0 을, 아니면 남은 대기 시간을 돌려준다.
func (l *SuggestionQuotaLimiter) tryReserve() (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.rollDay(now)
	if l.perDay > 0 && l.used >= l.perDay {
		return 0, ErrDailyQuotaExceeded
	}
	if wait := l.next.Sub(now); wait > 0 {
		return wait, nil
	}

	l.used++
	l.next = now.Add(l.gap)
	return 0, nil
}

func (l *SuggestionQuotaLimiter) rollDay(now time.Time) {
	if day := now.Format(time.DateOnly); day != l.day {
		l.day = day
		l.used = 0
	}
}

// Remaining 은 오늘 남은 호출 수다. 하루 제한이 없으면 -1.
func (l *SuggestionQuotaLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perDay <= 0 {
		return -1
	}
	l.rollDay(l.now().UTC())
	return l.perDay - l.used
}
