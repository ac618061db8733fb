package notification

import "github.com/assist-by/terminal/internal/domain"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendOrderInfo는 주문 접수/취소 정보를 전송합니다
	SendOrderInfo(order domain.OpenOrder) error

	// SendPnL은 체결로 실현 손익이 발생했을 때 알림을 전송합니다
	SendPnL(trade domain.Trade) error
}

// GetColorForSide는 주문 방향에 따른 색상을 반환합니다
func GetColorForSide(side domain.OrderSide) int {
	switch side {
	case domain.Buy:
		return ColorSuccess
	case domain.Sell:
		return ColorError
	default:
		return ColorInfo
	}
}

// GetColorForPnL은 손익 부호에 따른 색상을 반환합니다
func GetColorForPnL(pnl float64) int {
	switch {
	case pnl > 0:
		return ColorSuccess
	case pnl < 0:
		return ColorError
	default:
		return ColorInfo
	}
}

// Noop는 웹훅이 설정되지 않았을 때 사용하는 알림기입니다
type Noop struct{}

func (Noop) SendInfo(message string) error              { return nil }
func (Noop) SendError(err error) error                  { return nil }
func (Noop) SendOrderInfo(order domain.OpenOrder) error { return nil }
func (Noop) SendPnL(trade domain.Trade) error           { return nil }
