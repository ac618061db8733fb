package domain

// OrderSide는 주문 방향을 정의합니다
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderStatus는 열린 주문의 수명주기 상태를 정의합니다
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"   // 초기 상태 (낙관적 생성 또는 서버 접수)
	OrderFilling   OrderStatus = "filling"   // 체결 진행 중 (order_filled 이벤트 수신)
	OrderFilled    OrderStatus = "filled"    // 체결 완료, 이력으로 이동 (종료 상태)
	OrderCancelled OrderStatus = "cancelled" // 취소 확인됨 (종료 상태)
)

// IsTerminal은 종료 상태 여부를 반환합니다
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCancelled
}

// CanTransition은 s에서 to로의 상태 전이가 허용되는지 확인합니다.
// 허용되는 전이는 pending→filling→filled 와 pending→cancelled 뿐입니다.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderPending:
		return to == OrderFilling || to == OrderCancelled
	case OrderFilling:
		return to == OrderFilled
	default:
		return false
	}
}

// ConnectionStatus는 이벤트 스트림의 연결 상태를 정의합니다
type ConnectionStatus string

const (
	ConnIdle       ConnectionStatus = "idle"
	ConnConnecting ConnectionStatus = "connecting"
	ConnOpen       ConnectionStatus = "open"
	ConnClosed     ConnectionStatus = "closed"
)

// ConnectionState는 이벤트 스트림 클라이언트의 현재 상태를 나타냅니다
type ConnectionState struct {
	Status     ConnectionStatus // 연결 상태
	RetryCount int              // 재연결 시도 횟수 (연결 성공 시 0으로 초기화)
}
