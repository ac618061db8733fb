package domain

import "time"

// OpenOrder는 아직 종료되지 않은 주문을 표현합니다.
// 소유권은 주문 스토어에만 있으며, ID는 스토어 내에서 유일합니다.
type OpenOrder struct {
	ID     int64       `json:"id"`     // 주문 ID (서버 발급)
	Pair   string      `json:"pair"`   // 거래쌍
	Side   OrderSide   `json:"side"`   // 매수/매도
	Price  float64     `json:"price"`  // 주문 가격
	Amount float64     `json:"amount"` // 주문 수량
	Filled float64     `json:"filled"` // 체결된 수량
	Status OrderStatus `json:"status"` // 수명주기 상태

	// 재조정 관리용 필드. 서버 응답에는 포함되지 않습니다.
	ClientOrderID string    `json:"-"` // 낙관적 생성 시 부여하는 클라이언트 측 ID
	Unconfirmed   bool      `json:"-"` // 스냅샷으로 아직 확인되지 않은 낙관적 주문 여부
	CreatedAt     time.Time `json:"-"` // 로컬 기준 수신/생성 시각
}

// OrderPatch는 order_update 이벤트가 전달하는 부분 갱신입니다.
// nil이 아닌 필드만 기존 주문에 병합되며 병합은 ID 기준으로 멱등합니다.
// 알 수 없는 ID에 대한 패치로는 주문이 생성되지 않습니다.
type OrderPatch struct {
	ID     int64        `json:"id"`
	Pair   *string      `json:"pair,omitempty"`
	Side   *OrderSide   `json:"side,omitempty"`
	Price  *float64     `json:"price,omitempty"`
	Amount *float64     `json:"amount,omitempty"`
	Filled *float64     `json:"filled,omitempty"`
	Status *OrderStatus `json:"status,omitempty"`
}

// Apply는 패치의 설정된 필드를 주문에 병합합니다
func (p OrderPatch) Apply(o *OpenOrder) {
	if p.Pair != nil {
		o.Pair = *p.Pair
	}
	if p.Side != nil {
		o.Side = *p.Side
	}
	if p.Price != nil {
		o.Price = *p.Price
	}
	if p.Amount != nil {
		o.Amount = *p.Amount
	}
	if p.Filled != nil {
		o.Filled = *p.Filled
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
}
