// internal/exchange/lfes/client.go
package lfes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/assist-by/terminal/internal/domain"
	"github.com/assist-by/terminal/internal/exchange"
)

// Client는 LFES 백엔드 REST API 클라이언트를 구현합니다.
// 인증은 세션 쿠키 기반이므로 쿠키 저장소를 가진 HTTP 클라이언트를 사용합니다.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption은 클라이언트 생성 옵션을 정의합니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 클라이언트의 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient는 HTTP 클라이언트를 교체합니다 (테스트용)
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient는 새로운 LFES API 클라이언트를 생성합니다
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}

	// 옵션 적용
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest는 HTTP 요청을 실행하고 응답 본문을 반환합니다.
// 전송 실패는 ErrNetworkUnreachable로 감싸고, non-2xx 응답은 {detail} 본문을
// 읽어 HTTP 상태 코드가 붙은 APIError로 변환합니다.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("요청 직렬화 실패: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: 응답 읽기 실패: %v", exchange.ErrNetworkUnreachable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &exchange.APIError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: "프로토콜 통신 실패",
		}
		// JSON이 아닌 응답(HTML, 프록시 오류 등)은 기본 메시지를 유지합니다
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(respBody, &detail); err == nil && detail.Detail != "" {
			apiErr.Message = detail.Detail
		}
		return nil, apiErr
	}

	return respBody, nil
}

// Signup은 계정을 생성한 뒤 바로 로그인합니다
func (c *Client) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	payload := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/auth/signup", payload); err != nil {
		return nil, err
	}

	return c.Login(ctx, email, password)
}

// Login은 세션을 생성하고 계정 정보를 조회합니다
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/auth/login", payload); err != nil {
		return nil, err
	}

	return c.Me(ctx)
}

// Logout은 백엔드 세션을 종료합니다
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

// Me는 현재 세션의 계정 정보를 조회합니다
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(resp, &user); err != nil {
		return nil, fmt.Errorf("계정 정보 파싱 실패: %w", err)
	}

	return &user, nil
}

// TradeHistory는 체결 이력을 최신순으로 조회합니다
func (c *Client) TradeHistory(ctx context.Context) ([]domain.Trade, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/trade/history", nil)
	if err != nil {
		return nil, err
	}

	var trades []domain.Trade
	if err := json.Unmarshal(resp, &trades); err != nil {
		return nil, fmt.Errorf("체결 이력 파싱 실패: %w", err)
	}

	return trades, nil
}

// OpenOrders는 열린 주문 목록을 조회합니다.
// 일부 노드에서 주문 엔드포인트가 아직 초기화되지 않은 경우가 있어,
// 프로토콜 에러는 빈 목록으로 처리합니다. 전송 계층 실패는 그대로 반환해서
// 오래된 빈 목록이 스냅샷으로 반영되는 일을 막습니다.
func (c *Client) OpenOrders(ctx context.Context) ([]domain.OpenOrder, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/orders/open", nil)
	if err != nil {
		if exchange.IsRetryable(err) {
			return nil, err
		}
		return []domain.OpenOrder{}, nil
	}

	var orders []domain.OpenOrder
	if err := json.Unmarshal(resp, &orders); err != nil {
		return nil, fmt.Errorf("열린 주문 파싱 실패: %w", err)
	}

	return orders, nil
}

// CreateOrder는 새 주문을 생성하고 서버가 접수한 주문을 반환합니다
func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (*domain.OpenOrder, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/orders", req)
	if err != nil {
		return nil, err
	}

	var order domain.OpenOrder
	if err := json.Unmarshal(resp, &order); err != nil {
		return nil, fmt.Errorf("주문 응답 파싱 실패: %w", err)
	}

	return &order, nil
}

// ExecuteTrade는 즉시 체결 엔드포인트로 주문을 실행합니다
func (c *Client) ExecuteTrade(ctx context.Context, req exchange.OrderRequest) (*domain.Trade, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/trade", req)
	if err != nil {
		return nil, err
	}

	var trade domain.Trade
	if err := json.Unmarshal(resp, &trade); err != nil {
		return nil, fmt.Errorf("체결 응답 파싱 실패: %w", err)
	}

	return &trade, nil
}

// CancelOrder는 특정 주문의 취소를 요청합니다
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/cancel", orderID), nil)
	return err
}
