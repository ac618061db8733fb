package domain

import (
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  string
		wantError bool
	}{
		{
			name:     "order_update 이벤트 디코딩",
			raw:      `{"type":"order_update","data":{"order":{"id":42,"filled":0.5,"status":"pending"}}}`,
			wantKind: "order_update",
		},
		{
			name:     "order_filled 이벤트 디코딩",
			raw:      `{"type":"order_filled","data":{"order_id":42}}`,
			wantKind: "order_filled",
		},
		{
			name:     "trade 이벤트 디코딩",
			raw:      `{"type":"trade","data":{"id":7,"pair":"BTC/USDT","side":"sell","price":180,"amount":1,"total":180,"fee":0.18,"realized_pnl":30,"time":"2024-01-01T00:00:00Z"}}`,
			wantKind: "trade",
		},
		{
			name:     "balance_update 이벤트 디코딩",
			raw:      `{"type":"balance_update","data":{"balance":10250.5}}`,
			wantKind: "balance_update",
		},
		{
			name:     "mark_price 이벤트 디코딩",
			raw:      `{"type":"mark_price","data":{"pair":"BTC/USDT","price":97500}}`,
			wantKind: "mark_price",
		},
		{
			name:      "알 수 없는 이벤트 타입",
			raw:       `{"type":"order_book","data":{}}`,
			wantError: true,
		},
		{
			name:      "JSON이 아닌 메시지",
			raw:       `<html>502 Bad Gateway</html>`,
			wantError: true,
		},
		{
			name:      "주문 ID가 없는 order_update",
			raw:       `{"type":"order_update","data":{"order":{"filled":1}}}`,
			wantError: true,
		},
		{
			name:      "거래쌍이 없는 trade",
			raw:       `{"type":"trade","data":{"id":7,"price":100,"amount":1}}`,
			wantError: true,
		},
		{
			name:      "data 형태가 맞지 않는 mark_price",
			raw:       `{"type":"mark_price","data":{"pair":"BTC/USDT","price":"not-a-number"}}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.raw))

			if tt.wantError {
				if err == nil {
					t.Fatalf("ParseEvent() 에러를 기대했지만 %T를 반환했습니다", ev)
				}
				if !errors.Is(err, ErrMalformedMessage) {
					t.Errorf("ParseEvent() error = %v, ErrMalformedMessage로 감싸져야 합니다", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got := ev.eventKind(); got != tt.wantKind {
				t.Errorf("ParseEvent() kind = %s, want %s", got, tt.wantKind)
			}
		})
	}
}

func TestParseEvent_Values(t *testing.T) {
	raw := `{"type":"order_update","data":{"order":{"id":42,"filled":0.5,"status":"filling"}}}`

	ev, err := ParseEvent([]byte(raw))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}

	update, ok := ev.(OrderUpdateEvent)
	if !ok {
		t.Fatalf("ParseEvent() = %T, OrderUpdateEvent를 기대했습니다", ev)
	}
	if update.Patch.ID != 42 {
		t.Errorf("Patch.ID = %d, want 42", update.Patch.ID)
	}
	if update.Patch.Filled == nil || *update.Patch.Filled != 0.5 {
		t.Errorf("Patch.Filled = %v, want 0.5", update.Patch.Filled)
	}
	if update.Patch.Status == nil || *update.Patch.Status != OrderFilling {
		t.Errorf("Patch.Status = %v, want filling", update.Patch.Status)
	}
	// 설정되지 않은 필드는 nil로 남아야 합니다
	if update.Patch.Price != nil {
		t.Errorf("Patch.Price = %v, nil을 기대했습니다", *update.Patch.Price)
	}
}

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending에서 filling", OrderPending, OrderFilling, true},
		{"pending에서 cancelled", OrderPending, OrderCancelled, true},
		{"pending에서 filled 직행 불가", OrderPending, OrderFilled, false},
		{"filling에서 filled", OrderFilling, OrderFilled, true},
		{"filling에서 cancelled 불가", OrderFilling, OrderCancelled, false},
		{"filled는 종료 상태", OrderFilled, OrderPending, false},
		{"cancelled는 종료 상태", OrderCancelled, OrderFilling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestOrderPatch_ApplyIdempotent(t *testing.T) {
	filled := 0.7
	status := OrderFilling
	patch := OrderPatch{ID: 1, Filled: &filled, Status: &status}

	order := OpenOrder{ID: 1, Pair: "BTC/USDT", Side: Buy, Price: 100, Amount: 1, Status: OrderPending}

	patch.Apply(&order)
	once := order
	patch.Apply(&order)

	if order != once {
		t.Errorf("패치를 두 번 적용한 결과가 한 번 적용한 결과와 다릅니다: %+v != %+v", order, once)
	}
}
