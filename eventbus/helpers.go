package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"redgen/events"
)

// NewJSONMessage 생성: payload를 JSON으로 인코딩하여 Message를 구성합니다.
// id가 빈 문자열이면 uuid 를 생성합니다.
func NewJSONMessage(id string, t events.MessageType, payload any) (Message, error) {
	if id == "" {
		id = uuid.NewString()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("payload marshal 실패: %w", err)
	}
	return Message{ID: id, Type: t, Payload: b}, nil
}

// DecodeJSON은 JSON 페이로드를 제네릭 타입으로 언마샬합니다.
func DecodeJSON[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("payload unmarshal 실패: %w", err)
	}
	return out, nil
}

// Call 은 요청을 인코딩해 보내고 응답을 Resp 로 디코딩하는 헬퍼입니다.
func Call[Req, Resp any](ctx context.Context, b *Bus, t events.MessageType, req Req) (Resp, error) {
	var zero Resp
	msg, err := NewJSONMessage("", t, req)
	if err != nil {
		return zero, err
	}
	raw, err := b.Request(ctx, msg)
	if err != nil {
		return zero, err
	}
	return DecodeJSON[Resp](raw)
}

// HandleJSON 은 JSON 페이로드를 자동으로 디코딩/인코딩해주는 Handle 헬퍼입니다.
func HandleJSON[Req, Resp any](b *Bus, t events.MessageType, handler func(ctx context.Context, req Req) (Resp, error)) {
	b.Handle(t, func(ctx context.Context, msg Message) (json.RawMessage, error) {
		req, err := DecodeJSON[Req](msg.Payload)
		if err != nil {
			return nil, err
		}
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
}
