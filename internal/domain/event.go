package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage는 해석할 수 없는 푸시 메시지에 대한 에러입니다.
// 해당 메시지는 로그만 남기고 버려지며 연결은 유지됩니다.
var ErrMalformedMessage = errors.New("해석할 수 없는 푸시 메시지입니다")

// Event는 푸시 채널이 전달하는 이벤트의 닫힌 집합입니다.
// 새로운 이벤트 종류는 variant 타입과 ParseEvent 분기를 함께 추가해야 하므로
// 처리 누락이 컴파일 타임에 드러납니다.
type Event interface {
	eventKind() string
}

// OrderUpdateEvent는 열린 주문의 부분 갱신 이벤트입니다
type OrderUpdateEvent struct {
	Patch OrderPatch
}

// OrderFilledEvent는 주문의 체결 시작을 알리는 이벤트입니다
type OrderFilledEvent struct {
	OrderID int64
}

// TradeEvent는 실현 손익이 포함된 신규 체결 이벤트입니다
type TradeEvent struct {
	Trade Trade
}

// BalanceUpdateEvent는 잔고 갱신 이벤트입니다
type BalanceUpdateEvent struct {
	Balance float64
}

// MarkPriceEvent는 거래쌍의 마크 가격 브로드캐스트입니다
type MarkPriceEvent struct {
	Pair  string
	Price float64
}

func (OrderUpdateEvent) eventKind() string   { return "order_update" }
func (OrderFilledEvent) eventKind() string   { return "order_filled" }
func (TradeEvent) eventKind() string         { return "trade" }
func (BalanceUpdateEvent) eventKind() string { return "balance_update" }
func (MarkPriceEvent) eventKind() string     { return "mark_price" }

// ParseEvent는 {type, data} 형태의 푸시 메시지를 Event로 디코딩합니다.
// 알 수 없는 type이거나 data가 해당 type의 형태와 맞지 않으면
// ErrMalformedMessage를 반환합니다.
func ParseEvent(raw []byte) (Event, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch envelope.Type {
	case "order_update":
		var data struct {
			Order OrderPatch `json:"order"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: order_update: %v", ErrMalformedMessage, err)
		}
		if data.Order.ID == 0 {
			return nil, fmt.Errorf("%w: order_update: 주문 ID가 없습니다", ErrMalformedMessage)
		}
		return OrderUpdateEvent{Patch: data.Order}, nil

	case "order_filled":
		var data struct {
			OrderID int64 `json:"order_id"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: order_filled: %v", ErrMalformedMessage, err)
		}
		if data.OrderID == 0 {
			return nil, fmt.Errorf("%w: order_filled: 주문 ID가 없습니다", ErrMalformedMessage)
		}
		return OrderFilledEvent{OrderID: data.OrderID}, nil

	case "trade":
		var trade Trade
		if err := json.Unmarshal(envelope.Data, &trade); err != nil {
			return nil, fmt.Errorf("%w: trade: %v", ErrMalformedMessage, err)
		}
		if trade.Pair == "" {
			return nil, fmt.Errorf("%w: trade: 거래쌍이 없습니다", ErrMalformedMessage)
		}
		return TradeEvent{Trade: trade}, nil

	case "balance_update":
		var data struct {
			Balance float64 `json:"balance"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: balance_update: %v", ErrMalformedMessage, err)
		}
		return BalanceUpdateEvent{Balance: data.Balance}, nil

	case "mark_price":
		var data struct {
			Pair  string  `json:"pair"`
			Price float64 `json:"price"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: mark_price: %v", ErrMalformedMessage, err)
		}
		if data.Pair == "" {
			return nil, fmt.Errorf("%w: mark_price: 거래쌍이 없습니다", ErrMalformedMessage)
		}
		return MarkPriceEvent{Pair: data.Pair, Price: data.Price}, nil
	}

	return nil, fmt.Errorf("%w: 알 수 없는 이벤트 타입 %q", ErrMalformedMessage, envelope.Type)
}
