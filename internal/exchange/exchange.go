// internal/exchange/exchange.go
package exchange

import (
	"context"

	"github.com/assist-by/terminal/internal/domain"
)

// TradingAPI는 LFES 백엔드와의 상호작용을 위한 인터페이스입니다.
type TradingAPI interface {
	// 인증
	Signup(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*domain.User, error)

	// 계정 데이터 조회
	TradeHistory(ctx context.Context) ([]domain.Trade, error)
	OpenOrders(ctx context.Context) ([]domain.OpenOrder, error)

	// 거래 기능
	CreateOrder(ctx context.Context, req OrderRequest) (*domain.OpenOrder, error)
	ExecuteTrade(ctx context.Context, req OrderRequest) (*domain.Trade, error)
	CancelOrder(ctx context.Context, orderID int64) error
}

// OrderRequest는 주문 생성 요청 정보를 담습니다
type OrderRequest struct {
	Side          domain.OrderSide `json:"side"`                      // 매수/매도
	Pair          string           `json:"pair"`                      // 거래쌍
	Price         float64          `json:"price"`                     // 주문 가격
	Amount        float64          `json:"amount"`                    // 주문 수량
	ClientOrderID string           `json:"client_order_id,omitempty"` // 클라이언트 측 주문 ID
}
