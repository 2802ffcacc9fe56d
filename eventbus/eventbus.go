package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"redgen/config"
	"redgen/events"
)

// Message 는 버스로 오가는 요청 봉투다. Payload 는 events 패키지의 요청 구조체를 JSON 으로 담는다.
type Message struct {
	ID      string             `json:"id"`
	Type    events.MessageType `json:"type"`
	Payload json.RawMessage    `json:"payload"`
}

// Handler 는 한 메시지 타입을 처리하고 JSON 응답을 돌려준다.
type Handler func(ctx context.Context, msg Message) (json.RawMessage, error)

var (
	ErrNoHandler = errors.New("no handler for message type")
	ErrClosed    = errors.New("event bus closed")
)

type request struct {
	ctx   context.Context
	msg   Message
	reply chan result
}

type result struct {
	payload json.RawMessage
	err     error
}

// Bus 는 프로세스 내부 요청/응답 버스다.
// 요청은 하나의 워커에서 도착 순서대로 한 번에 하나씩 처리된다.
// 한 번 워커에 넘어간 요청은 호출자의 컨텍스트가 취소되어도 끝까지 실행된다.
type Bus struct {
	mu       sync.RWMutex
	handlers map[events.MessageType]Handler

	queue chan request
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func New() *Bus {
	b := &Bus{
		handlers: map[events.MessageType]Handler{},
		queue:    make(chan request),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.worker()
	return b
}

// Handle 는 메시지 타입에 핸들러를 등록한다. 같은 타입은 덮어쓴다.
func (b *Bus) Handle(t events.MessageType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = h
}

// Request 는 메시지를 보내고 응답을 기다린다.
// 워커에 넘어가기 전에만 ctx 취소가 반영된다.
func (b *Bus) Request(ctx context.Context, msg Message) (json.RawMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	req := request{ctx: context.WithoutCancel(ctx), msg: msg, reply: make(chan result, 1)}
	select {
	case b.queue <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, ErrClosed
	}
	res := <-req.reply
	return res.payload, res.err
}

// Close 는 진행 중인 요청이 끝날 때까지 기다린 뒤 워커를 멈춘다.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case req := <-b.queue:
			req.reply <- b.dispatch(req)
		}
	}
}

func (b *Bus) dispatch(req request) (res result) {
	b.mu.RLock()
	h, ok := b.handlers[req.msg.Type]
	b.mu.RUnlock()
	if !ok {
		return result{err: fmt.Errorf("%w: %s", ErrNoHandler, req.msg.Type)}
	}

	defer func() {
		if r := recover(); r != nil {
			config.Log.Errorf("eventbus: handler %s panicked: %v", req.msg.Type, r)
			res = result{err: fmt.Errorf("handler %s panicked: %v", req.msg.Type, r)}
		}
	}()

	config.Log.Debugf("eventbus: handling %s id=%s", req.msg.Type, req.msg.ID)
	payload, err := h(req.ctx, req.msg)
	return result{payload: payload, err: err}
}
