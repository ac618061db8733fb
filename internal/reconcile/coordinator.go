// Package reconcile은 낙관적 주문, 실시간 이벤트, 폴링 스냅샷이라는 세 가지
// 진실 출처를 하나의 일관된 상태로 병합하는 조정자를 제공합니다.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/assist-by/terminal/internal/domain"
	"github.com/assist-by/terminal/internal/exchange"
	"github.com/assist-by/terminal/internal/ledger"
	"github.com/assist-by/terminal/internal/notification"
	"github.com/assist-by/terminal/internal/orders"
	"github.com/google/uuid"
)

// ErrInsufficientBalance는 잔고가 주문 금액에 못 미칠 때 반환됩니다.
// 서버 왕복 전에 로컬 잔고로 먼저 거릅니다.
var ErrInsufficientBalance = errors.New("잔고가 부족합니다")

// Config는 조정자의 동작 설정입니다
type Config struct {
	// SettleDelay는 filling 상태를 유지한 뒤 이력으로 정산하기까지의 지연입니다
	SettleDelay time.Duration
	// UnconfirmedTimeout은 스냅샷으로 확인되지 않은 낙관적 주문의 유지 기한입니다
	UnconfirmedTimeout time.Duration
	// PollFailureNotifyAfter는 연속 폴링 실패가 몇 번 누적되면 알림을 보낼지 정합니다
	PollFailureNotifyAfter int
	// RetryCount는 일시적인 네트워크 실패에 대한 폴링 내 재시도 횟수입니다
	RetryCount int
	// RetryDelay는 폴링 내 재시도 간격입니다
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 700 * time.Millisecond
	}
	if c.UnconfirmedTimeout <= 0 {
		c.UnconfirmedTimeout = 90 * time.Second
	}
	if c.PollFailureNotifyAfter <= 0 {
		c.PollFailureNotifyAfter = 3
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

// snapshot은 한 번의 폴링으로 받아온 전체 서버 상태입니다
type snapshot struct {
	user   *domain.User
	trades []domain.Trade
	open   []domain.OpenOrder
}

// State는 조정자가 관리하는 상태의 읽기 전용 사본입니다
type State struct {
	User       domain.User
	Trades     []domain.Trade
	OpenOrders []domain.OpenOrder
	History    []domain.OpenOrder
	Positions  map[string]domain.Position
	MarkPrices map[string]float64
	LastSyncAt time.Time
}

// Coordinator는 모든 상태 변경을 단일 고루틴에서 직렬화하는 조정자입니다.
// 네트워크 I/O는 호출자의 고루틴에서 수행하고 그 결과의 반영만 작업 큐로
// 넘기므로, 쓰기 경로에는 경쟁이 없습니다. 반영 순서는 도착 순서이며
// 스냅샷은 자신이 포함한 주문에 대해 항상 권위를 가집니다.
type Coordinator struct {
	api      exchange.TradingAPI
	notifier notification.Notifier
	cfg      Config

	store *orders.Store
	tasks chan func()

	mu         sync.RWMutex
	user       domain.User
	trades     []domain.Trade
	positions  map[string]domain.Position
	markPrices map[string]float64
	lastSyncAt time.Time

	pollFailures int // run 고루틴에서만 접근

	changes   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCoordinator는 새로운 조정자를 생성합니다
func NewCoordinator(api exchange.TradingAPI, notifier notification.Notifier, cfg Config) *Coordinator {
	cfg.applyDefaults()

	c := &Coordinator{
		api:        api,
		notifier:   notifier,
		cfg:        cfg,
		tasks:      make(chan func(), 64),
		positions:  make(map[string]domain.Position),
		markPrices: make(map[string]float64),
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	c.store = orders.NewStore(orders.WithChangeFunc(c.markChanged))

	return c
}

// Start는 단일 쓰기 고루틴을 시작합니다.
// events는 이벤트 스트림 클라이언트의 수신 채널입니다.
func (c *Coordinator) Start(ctx context.Context, events <-chan domain.Event) {
	go c.run(ctx, events)
}

// run은 작업 큐와 이벤트 채널을 소비하는 유일한 쓰기 고루틴입니다
func (c *Coordinator) run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case task := <-c.tasks:
			task()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(event)
		}
	}
}

// enqueue는 상태 변경 작업을 쓰기 고루틴으로 넘깁니다.
// 조정자가 종료된 뒤 도착한 작업(뒤늦은 네트워크 응답 등)은 버립니다.
func (c *Coordinator) enqueue(task func()) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.tasks <- task:
	case <-c.done:
	}
}

// markChanged는 변경 신호를 병합해 전달합니다. 밀린 신호는 하나로 합쳐집니다.
func (c *Coordinator) markChanged() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Changes는 상태가 변경될 때마다 신호가 오는 채널을 반환합니다
func (c *Coordinator) Changes() <-chan struct{} {
	return c.changes
}

// Execute는 폴링 스케줄러가 호출하는 전체 상태 동기화 작업입니다.
// 네트워크 I/O는 이 고루틴에서 수행하고 결과 반영만 쓰기 고루틴에 넘깁니다.
func (c *Coordinator) Execute(ctx context.Context) error {
	snap, err := c.fetchSnapshot(ctx)
	if err != nil {
		c.enqueue(func() { c.recordPollFailure(err) })
		return fmt.Errorf("상태 동기화 실패: %w", err)
	}

	c.enqueue(func() {
		c.pollFailures = 0
		c.applySnapshot(snap)
	})
	return nil
}

// fetchSnapshot은 계정, 체결 이력, 열린 주문을 순서대로 조회합니다.
// 일시적인 네트워크 실패는 짧은 간격으로 재시도합니다.
func (c *Coordinator) fetchSnapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot

	err := c.withRetry(ctx, func() error {
		user, err := c.api.Me(ctx)
		if err != nil {
			return fmt.Errorf("계정 조회 실패: %w", err)
		}

		trades, err := c.api.TradeHistory(ctx)
		if err != nil {
			return fmt.Errorf("체결 이력 조회 실패: %w", err)
		}

		open, err := c.api.OpenOrders(ctx)
		if err != nil {
			return fmt.Errorf("열린 주문 조회 실패: %w", err)
		}

		snap = snapshot{user: user, trades: trades, open: open}
		return nil
	})

	return snap, err
}

// withRetry는 재시도 가능한 에러에 한해 작업을 재시도합니다
func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			log.Printf("일시적인 실패, 재시도 중 (%d/%d): %v", attempt, c.cfg.RetryCount, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !exchange.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// recordPollFailure는 연속 실패를 세고 기준을 넘으면 알림을 보냅니다.
// 다음 주기의 폴링은 스케줄러가 계속 시도하므로 여기서는 기록만 합니다.
func (c *Coordinator) recordPollFailure(err error) {
	c.pollFailures++
	if c.pollFailures != c.cfg.PollFailureNotifyAfter {
		return
	}

	notifyErr := fmt.Errorf("상태 동기화가 %d회 연속 실패했습니다: %w", c.pollFailures, err)
	go func() {
		if err := c.notifier.SendError(notifyErr); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
	}()
}

// applySnapshot은 폴링 스냅샷을 상태에 반영합니다. 체결 원장과 계정 정보는
// 통째로 교체되고, 열린 주문은 아직 확인되지 않은 낙관적 주문을 기한 내에서
// 유지하는 정책으로 교체됩니다.
func (c *Coordinator) applySnapshot(snap snapshot) {
	// 서버가 보낸 원장이어도 깨진 기록이 섞일 수 있으므로 걸러냅니다
	trades := make([]domain.Trade, 0, len(snap.trades))
	for _, t := range snap.trades {
		if err := t.Validate(); err != nil {
			log.Printf("체결 기록 무시 (ID %d): %v", t.ID, err)
			continue
		}
		trades = append(trades, t)
	}

	expired := c.store.ReplaceFromSnapshot(snap.open, c.cfg.UnconfirmedTimeout)
	if expired > 0 {
		log.Printf("확인되지 않은 낙관적 주문 %d건이 기한 만료로 제거되었습니다", expired)
	}

	c.mu.Lock()
	c.user = *snap.user
	c.trades = trades
	c.lastSyncAt = time.Now()
	c.recomputeLocked()
	c.mu.Unlock()

	c.markChanged()
}

// handleEvent는 실시간 이벤트 한 건을 상태에 반영합니다
func (c *Coordinator) handleEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.OrderUpdateEvent:
		c.store.Upsert(e.Patch)

	case domain.OrderFilledEvent:
		c.store.MarkFilling(e.OrderID)
		// filling 상태를 잠시 보여준 뒤 이력으로 정산합니다. 타이머가 울리는
		// 시점에 재조정이 주문을 먼저 처리했다면 Settle이 건너뜁니다.
		id := e.OrderID
		time.AfterFunc(c.cfg.SettleDelay, func() {
			c.enqueue(func() {
				c.store.Settle(id)
			})
		})

	case domain.TradeEvent:
		c.applyTrade(e.Trade)

	case domain.BalanceUpdateEvent:
		c.mu.Lock()
		c.user.Balance = e.Balance
		c.mu.Unlock()
		c.markChanged()

	case domain.MarkPriceEvent:
		c.mu.Lock()
		c.markPrices[e.Pair] = e.Price
		c.recomputeLocked()
		c.mu.Unlock()
		c.markChanged()
	}
}

// applyTrade는 신규 체결을 원장 맨 앞에 추가하고 포지션을 다시 계산합니다.
// 직접 실행 응답과 푸시 이벤트가 같은 체결을 두 번 전달할 수 있으므로
// 이미 원장에 있는 ID는 무시합니다.
func (c *Coordinator) applyTrade(trade domain.Trade) {
	if err := trade.Validate(); err != nil {
		log.Printf("체결 이벤트 무시 (ID %d): %v", trade.ID, err)
		return
	}

	c.mu.Lock()
	for _, existing := range c.trades {
		if existing.ID == trade.ID {
			c.mu.Unlock()
			return
		}
	}
	c.trades = append([]domain.Trade{trade}, c.trades...)
	c.recomputeLocked()
	c.mu.Unlock()

	c.markChanged()

	if trade.RealizedPnL != 0 {
		go func() {
			if err := c.notifier.SendPnL(trade); err != nil {
				log.Printf("손익 알림 전송 실패: %v", err)
			}
		}()
	}
}

// recomputeLocked는 체결 원장 전체에서 포지션을 다시 계산합니다.
// 증분 갱신 대신 매번 전체를 계산해 오차가 누적되지 않게 합니다.
// c.mu를 쥔 상태에서 호출해야 합니다.
func (c *Coordinator) recomputeLocked() {
	positions, err := ledger.ComputeAll(c.trades, c.markPrices)
	if err != nil {
		// 원장은 반영 전에 검증되므로 도달하면 프로그래밍 오류입니다
		log.Printf("포지션 계산 실패: %v", err)
		return
	}
	c.positions = positions
}

// PlaceOrder는 주문을 생성합니다. 서버 접수 성공 시 해당 주문을 낙관적으로
// 열린 주문 집합에 추가하고, 다음 스냅샷이나 이벤트가 이를 확정합니다.
func (c *Coordinator) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*domain.OpenOrder, error) {
	if req.Side == domain.Buy {
		c.mu.RLock()
		balance := c.user.Balance
		c.mu.RUnlock()

		if req.Price*req.Amount > balance {
			return nil, ErrInsufficientBalance
		}
	}

	req.ClientOrderID = uuid.NewString()

	order, err := c.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	optimistic := *order
	optimistic.ClientOrderID = req.ClientOrderID
	optimistic.Unconfirmed = true
	optimistic.CreatedAt = time.Now()

	c.enqueue(func() {
		if err := c.store.Create(optimistic); err != nil {
			// 스트림 이벤트나 스냅샷이 먼저 같은 주문을 넣었다면 그쪽이 우선입니다
			if !errors.Is(err, orders.ErrDuplicateOrder) {
				log.Printf("낙관적 주문 반영 실패: %v", err)
			}
		}
	})

	go func() {
		if err := c.notifier.SendOrderInfo(optimistic); err != nil {
			log.Printf("주문 알림 전송 실패: %v", err)
		}
	}()

	return order, nil
}

// ExecuteTrade는 즉시 체결 주문을 실행합니다. 서버가 돌려준 체결을 원장에
// 바로 반영하고, 잔고 등 나머지 상태는 이벤트나 다음 스냅샷이 맞춥니다.
func (c *Coordinator) ExecuteTrade(ctx context.Context, req exchange.OrderRequest) (*domain.Trade, error) {
	if req.Side == domain.Buy {
		c.mu.RLock()
		balance := c.user.Balance
		c.mu.RUnlock()

		if req.Price*req.Amount > balance {
			return nil, ErrInsufficientBalance
		}
	}

	req.ClientOrderID = uuid.NewString()

	trade, err := c.api.ExecuteTrade(ctx, req)
	if err != nil {
		return nil, err
	}

	applied := *trade
	c.enqueue(func() {
		c.applyTrade(applied)
	})

	return trade, nil
}

// CancelOrder는 주문을 취소합니다. pending이 아닌 주문은 서버 왕복 없이
// 거부하고, 서버 취소가 성공하면 로컬에서도 취소 처리합니다.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID int64) error {
	order, exists := c.store.Get(orderID)
	if !exists {
		return orders.NewOrderError(orderID, "cancel", orders.ErrOrderNotFound)
	}
	if !order.Status.CanTransition(domain.OrderCancelled) {
		return orders.NewOrderError(orderID, "cancel", orders.ErrInvalidTransition)
	}

	if err := c.api.CancelOrder(ctx, orderID); err != nil {
		return err
	}

	c.enqueue(func() {
		if err := c.store.Cancel(orderID); err != nil {
			// 취소 요청 중에 체결이 먼저 진행된 경우입니다. 다음 스냅샷이 정리합니다.
			log.Printf("로컬 취소 반영 실패: %v", err)
		}
	})

	cancelled := order
	cancelled.Status = domain.OrderCancelled
	go func() {
		if err := c.notifier.SendOrderInfo(cancelled); err != nil {
			log.Printf("주문 알림 전송 실패: %v", err)
		}
	}()

	return nil
}

// Snapshot은 현재 상태의 읽기 전용 사본을 반환합니다
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	state := State{
		User:       c.user,
		Trades:     make([]domain.Trade, len(c.trades)),
		Positions:  make(map[string]domain.Position, len(c.positions)),
		MarkPrices: make(map[string]float64, len(c.markPrices)),
		LastSyncAt: c.lastSyncAt,
	}
	copy(state.Trades, c.trades)
	for pair, position := range c.positions {
		state.Positions[pair] = position
	}
	for pair, price := range c.markPrices {
		state.MarkPrices[pair] = price
	}
	c.mu.RUnlock()

	state.OpenOrders = c.store.Open()
	state.History = c.store.History()
	return state
}

// Close는 조정자를 종료하고 모든 로컬 상태를 비웁니다.
// 종료 이후 도착하는 네트워크 응답과 타이머는 모두 버려집니다.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.user = domain.User{}
		c.trades = nil
		c.positions = make(map[string]domain.Position)
		c.markPrices = make(map[string]float64)
		c.lastSyncAt = time.Time{}
		c.mu.Unlock()

		c.store.Clear()
	})
}
