package domain

import (
	"errors"
	"time"
)

// ErrInvalidTrade는 가격이나 수량이 0 이하인 체결 기록에 대한 에러입니다
var ErrInvalidTrade = errors.New("유효하지 않은 체결 기록입니다: 가격과 수량은 0보다 커야 합니다")

// Trade는 단일 체결 기록을 표현합니다. 서버(직접 응답 또는 푸시 이벤트)에서만
// 생성되며 생성 이후 변경되지 않습니다. 원장에서는 최신 체결이 앞에 위치합니다.
type Trade struct {
	ID          int64     `json:"id"`           // 체결 ID
	Pair        string    `json:"pair"`         // 거래쌍 (예: BTC/USDT)
	Side        OrderSide `json:"side"`         // 매수/매도
	Price       float64   `json:"price"`        // 체결 가격
	Amount      float64   `json:"amount"`       // 체결 수량
	Total       float64   `json:"total"`        // 체결 금액 (price * amount)
	Fee         float64   `json:"fee"`          // 수수료
	RealizedPnL float64   `json:"realized_pnl"` // 서버가 계산한 실현 손익
	Time        time.Time `json:"time"`         // 체결 시각
}

// Validate는 체결 기록의 숫자 필드를 검증합니다
func (t Trade) Validate() error {
	if t.Price <= 0 || t.Amount <= 0 {
		return ErrInvalidTrade
	}
	return nil
}
