package exchange

import (
	"errors"
	"fmt"
)

// ErrNetworkUnreachable는 전송 계층 실패를 나타냅니다.
// 백그라운드 폴링에서는 호출한 스케줄러가 다음 주기에 재시도하며
// 치명적 에러로 다루지 않습니다.
var ErrNetworkUnreachable = errors.New("네트워크 노드에 연결할 수 없습니다")

// APIError는 백엔드가 돌려준 프로토콜 에러입니다 (non-2xx 응답의 {detail}).
// 자동으로 재시도하지 않으며 호출자에게 그대로 전달됩니다.
type APIError struct {
	Code    string // HTTP_<status> 형태의 코드
	Message string // 서버가 전달한 메시지
}

// Error는 error 인터페이스를 구현합니다
func (e *APIError) Error() string {
	return fmt.Sprintf("API 에러 [%s]: %s", e.Code, e.Message)
}

// IsRetryable은 스케줄러가 재시도해도 되는 에러인지 확인합니다.
// 프로토콜 에러는 재시도해도 같은 결과이므로 전송 계층 실패만 재시도합니다.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetworkUnreachable)
}
