package orders

import "fmt"

// Error 타입들은 주문 수명주기 관리 중 발생할 수 있는 에러를 정의합니다
var (
	ErrDuplicateOrder    = fmt.Errorf("이미 존재하는 주문 ID입니다")
	ErrOrderNotFound     = fmt.Errorf("해당 주문이 존재하지 않습니다")
	ErrInvalidTransition = fmt.Errorf("허용되지 않는 주문 상태 전이입니다")
)

// OrderError는 주문 수명주기 에러를 확장한 구조체입니다
type OrderError struct {
	OrderID int64
	Op      string
	Err     error
}

// Error는 error 인터페이스를 구현합니다
func (e *OrderError) Error() string {
	return fmt.Sprintf("주문 에러 [ID: %d, 작업: %s]: %v", e.OrderID, e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError는 새로운 OrderError를 생성합니다
func NewOrderError(orderID int64, op string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Op:      op,
		Err:     err,
	}
}
