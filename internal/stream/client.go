// internal/stream/client.go
package stream

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/assist-by/terminal/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// writeWait는 웹소켓 쓰기 작업의 최대 대기 시간입니다
	writeWait = 10 * time.Second
	// pingInterval은 연결 유지용 핑 전송 간격입니다
	pingInterval = 8 * time.Second
	// baseRetryDelay는 재연결 대기 시간의 기준값입니다
	baseRetryDelay = time.Second
	// maxRetryDelay는 재연결 대기 시간의 상한입니다
	maxRetryDelay = 8 * time.Second
	// eventBufferSize는 이벤트 채널의 버퍼 크기입니다
	eventBufferSize = 64
)

// pingMessage는 백엔드가 기대하는 애플리케이션 레벨 핑입니다.
// 웹소켓 제어 프레임이 아닌 텍스트 메시지로 전송합니다.
var pingMessage = []byte(`{"type":"ping"}`)

// RetryDelay는 재연결 시도 횟수에 대한 대기 시간을 계산합니다.
// 1초에서 시작해 시도마다 두 배로 늘어나고 8초에서 멈춥니다.
func RetryDelay(retryCount int) time.Duration {
	delay := baseRetryDelay << retryCount
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

// Client는 주문 이벤트 푸시 채널의 웹소켓 클라이언트입니다.
// 연결이 끊기면 지수 백오프로 자동 재연결하며, 수신한 메시지를
// 도메인 이벤트로 해석해 Events 채널로 전달합니다.
// 해석할 수 없는 메시지는 로그만 남기고 버립니다.
type Client struct {
	wsURL  string
	events chan domain.Event

	mu    sync.Mutex
	conn  *websocket.Conn
	state domain.ConnectionState
	alive bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient는 새로운 이벤트 스트림 클라이언트를 생성합니다
func NewClient(wsURL string) *Client {
	return &Client{
		wsURL:  wsURL,
		events: make(chan domain.Event, eventBufferSize),
		state:  domain.ConnectionState{Status: domain.ConnIdle},
		alive:  true,
		done:   make(chan struct{}),
	}
}

// Events는 수신한 도메인 이벤트가 전달되는 채널을 반환합니다
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// State는 현재 연결 상태를 반환합니다
func (c *Client) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start는 연결 루프를 시작합니다. 컨텍스트가 취소되거나 Close가
// 호출될 때까지 연결 유지와 재연결을 반복합니다.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

// run은 연결, 수신, 재연결 대기를 반복하는 메인 루프입니다.
// 다이얼 실패든 수립된 연결의 끊김이든, 다음 연결 시도는 항상
// 백오프 대기를 거칩니다.
func (c *Client) run(ctx context.Context) {
	for {
		if !c.isAlive() {
			return
		}

		c.setStatus(domain.ConnConnecting)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			log.Printf("이벤트 스트림 연결 실패: %v", err)
			if !c.waitRetry(ctx) {
				return
			}
			continue
		}

		if !c.setOpen(conn) {
			// 다이얼 중에 Close가 먼저 실행된 경우입니다
			return
		}
		log.Println("이벤트 스트림 연결 성공")

		pingDone := make(chan struct{})
		go c.pingLoop(conn, pingDone)

		c.readLoop(ctx, conn)

		close(pingDone)
		conn.Close()
		c.setStatus(domain.ConnClosed)

		if !c.isAlive() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		log.Println("이벤트 스트림 연결이 끊어졌습니다")
		if !c.waitRetry(ctx) {
			return
		}
	}
}

// waitRetry는 재시도 횟수를 올리고 백오프 시간만큼 대기합니다.
// 종료 신호로 대기가 중단되면 false를 반환합니다.
func (c *Client) waitRetry(ctx context.Context) bool {
	retry := c.bumpRetry()
	delay := RetryDelay(retry)
	log.Printf("%v 후 재연결합니다 (시도 %d회)", delay, retry+1)

	select {
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	case <-time.After(delay):
		return true
	}
}

// readLoop는 메시지를 읽어 이벤트로 해석해 전달합니다.
// 읽기 에러가 발생하면 반환하고, 호출자가 재연결을 결정합니다.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if c.isAlive() {
				log.Printf("이벤트 스트림 읽기 실패: %v", err)
			}
			return
		}

		event, err := domain.ParseEvent(raw)
		if err != nil {
			// 잘못된 메시지는 연결을 유지한 채 버립니다
			log.Printf("푸시 메시지 무시: %v", err)
			continue
		}

		select {
		case c.events <- event:
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// pingLoop는 주기적으로 애플리케이션 레벨 핑을 전송합니다
func (c *Client) pingLoop(conn *websocket.Conn, pingDone chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pingDone:
			return
		case <-c.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, pingMessage); err != nil {
				log.Printf("핑 전송 실패: %v", err)
				return
			}
		}
	}
}

// Close는 스트림을 영구적으로 종료합니다. 재연결하지 않습니다.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.alive = false
		conn := c.conn
		c.conn = nil
		c.state = domain.ConnectionState{Status: domain.ConnClosed, RetryCount: c.state.RetryCount}
		c.mu.Unlock()

		close(c.done)
		if conn != nil {
			conn.Close()
		}
	})
}

func (c *Client) isAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *Client) setStatus(status domain.ConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Status = status
}

// setOpen은 연결 성공 상태를 기록하고 재시도 횟수를 초기화합니다.
// Close가 먼저 실행된 뒤 도착한 연결은 저장하지 않고 즉시 닫은 뒤
// false를 반환합니다.
func (c *Client) setOpen(conn *websocket.Conn) bool {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	c.state = domain.ConnectionState{Status: domain.ConnOpen, RetryCount: 0}
	c.mu.Unlock()
	return true
}

// bumpRetry는 끊김을 기록하고 대기 시간 계산에 쓸 시도 횟수를 반환합니다
func (c *Client) bumpRetry() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	retry := c.state.RetryCount
	c.state = domain.ConnectionState{Status: domain.ConnClosed, RetryCount: retry + 1}
	return retry
}
