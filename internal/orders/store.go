// Package orders는 열린 주문 집합과 주문 수명주기 전이를 관리합니다.
package orders

import (
	"sort"
	"sync"
	"time"

	"github.com/assist-by/terminal/internal/domain"
)

// ChangeFunc는 스토어 내용이 변경될 때마다 호출되는 콜백입니다.
// 조정자가 하위(알림/표시) 계층으로 변경을 전파하는 데 사용합니다.
type ChangeFunc func()

// Store는 열린 주문 집합과 종료된 주문 이력을 관리합니다.
// 변경은 조정자의 단일 고루틴에서만 이루어지지만 조회는 다른 고루틴에서도
// 일어나므로 뮤텍스로 보호합니다.
type Store struct {
	mu       sync.RWMutex
	open     map[int64]*domain.OpenOrder
	history  []domain.OpenOrder // 최신이 앞
	onChange ChangeFunc
}

// StoreOption은 스토어 생성 옵션을 정의합니다
type StoreOption func(*Store)

// WithChangeFunc는 변경 알림 콜백을 등록합니다
func WithChangeFunc(fn ChangeFunc) StoreOption {
	return func(s *Store) {
		s.onChange = fn
	}
}

// NewStore는 새로운 주문 스토어를 생성합니다
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		open: make(map[int64]*domain.OpenOrder),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// notify는 등록된 변경 콜백을 호출합니다. 잠금을 쥔 채 호출하면 안 됩니다.
func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Create는 새 주문을 pending 상태로 삽입합니다.
// 같은 ID가 이미 있으면 ErrDuplicateOrder를 반환합니다.
func (s *Store) Create(order domain.OpenOrder) error {
	s.mu.Lock()
	if _, exists := s.open[order.ID]; exists {
		s.mu.Unlock()
		return NewOrderError(order.ID, "create", ErrDuplicateOrder)
	}

	order.Status = domain.OrderPending
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	s.open[order.ID] = &order
	s.mu.Unlock()

	s.notify()
	return nil
}

// Upsert는 부분 갱신을 ID 기준으로 기존 주문에 병합합니다.
// 알 수 없는 ID면 아무 일도 하지 않습니다 (부분 정보로 주문을 만들지 않음).
// 같은 패치를 두 번 적용해도 결과는 같습니다.
func (s *Store) Upsert(patch domain.OrderPatch) {
	s.mu.Lock()
	order, exists := s.open[patch.ID]
	if !exists {
		s.mu.Unlock()
		return
	}
	patch.Apply(order)
	// 서버가 패치로 상태를 확정해 주었다면 낙관적 표시를 해제합니다
	if patch.Status != nil {
		order.Unconfirmed = false
	}
	s.mu.Unlock()

	s.notify()
}

// MarkFilling은 주문을 pending에서 filling으로 전이합니다.
// 주문이 이미 재조정으로 제거된 뒤 도착한 이벤트는 경쟁일 뿐 버그가 아니므로
// 조용히 무시합니다. 이미 filling인 주문에 대해서도 멱등하게 동작합니다.
func (s *Store) MarkFilling(id int64) {
	s.mu.Lock()
	order, exists := s.open[id]
	if !exists || order.Status == domain.OrderFilling {
		s.mu.Unlock()
		return
	}
	if !order.Status.CanTransition(domain.OrderFilling) {
		s.mu.Unlock()
		return
	}
	order.Status = domain.OrderFilling
	order.Unconfirmed = false
	s.mu.Unlock()

	s.notify()
}

// Settle은 filling 상태의 주문을 열린 집합에서 제거하고 filled 기록을
// 이력에 추가합니다. 정산 시점에 주문이 이미 없거나 filling이 아니면
// (재조정이 먼저 처리한 경우) 조용히 건너뜁니다.
// 정산 지연의 스케줄링은 호출자(조정자)의 몫입니다.
func (s *Store) Settle(id int64) (domain.OpenOrder, bool) {
	s.mu.Lock()
	order, exists := s.open[id]
	if !exists || !order.Status.CanTransition(domain.OrderFilled) {
		s.mu.Unlock()
		return domain.OpenOrder{}, false
	}

	settled := *order
	settled.Status = domain.OrderFilled
	delete(s.open, id)
	s.history = append([]domain.OpenOrder{settled}, s.history...)
	s.mu.Unlock()

	s.notify()
	return settled, true
}

// Cancel은 pending 상태의 주문을 취소하고 cancelled 기록을 이력에 추가합니다.
// pending이 아닌 주문은 ErrInvalidTransition, 없는 주문은 ErrOrderNotFound를
// 반환합니다.
func (s *Store) Cancel(id int64) error {
	s.mu.Lock()
	order, exists := s.open[id]
	if !exists {
		s.mu.Unlock()
		return NewOrderError(id, "cancel", ErrOrderNotFound)
	}
	if !order.Status.CanTransition(domain.OrderCancelled) {
		s.mu.Unlock()
		return NewOrderError(id, "cancel", ErrInvalidTransition)
	}

	cancelled := *order
	cancelled.Status = domain.OrderCancelled
	delete(s.open, id)
	s.history = append([]domain.OpenOrder{cancelled}, s.history...)
	s.mu.Unlock()

	s.notify()
	return nil
}

// ReplaceFromSnapshot은 폴링 스냅샷으로 열린 주문 집합을 교체합니다.
// 스냅샷은 자신이 포함한 주문에 대해 권위를 가지므로 포함된 주문은 그대로
// 반영되고 (낙관적 표시도 해제), 포함되지 않은 주문은 제거됩니다.
// 단, 아직 스냅샷으로 확인되지 않은 낙관적 주문은 생성된 지
// keepUnconfirmedFor가 지나지 않았다면 유지합니다. 방금 넣은 주문이 다음
// 폴링 전에 화면에서 사라지는 깜빡임을 막기 위한 정책입니다.
// 기한이 지난 미확인 주문의 수를 반환합니다.
func (s *Store) ReplaceFromSnapshot(snapshot []domain.OpenOrder, keepUnconfirmedFor time.Duration) int {
	now := time.Now()

	s.mu.Lock()
	next := make(map[int64]*domain.OpenOrder, len(snapshot))
	for _, order := range snapshot {
		order := order
		if order.Status == "" {
			order.Status = domain.OrderPending
		}
		order.Unconfirmed = false
		if prev, exists := s.open[order.ID]; exists {
			order.ClientOrderID = prev.ClientOrderID
			order.CreatedAt = prev.CreatedAt
		} else if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		next[order.ID] = &order
	}

	expired := 0
	for id, order := range s.open {
		if _, confirmed := next[id]; confirmed {
			continue
		}
		if !order.Unconfirmed {
			continue // 확인된 주문이 스냅샷에서 빠졌다면 서버가 제거한 것입니다
		}
		if now.Sub(order.CreatedAt) < keepUnconfirmedFor {
			next[id] = order
		} else {
			expired++
		}
	}

	s.open = next
	s.mu.Unlock()

	s.notify()
	return expired
}

// Clear는 모든 열린 주문과 이력을 제거합니다 (로그아웃 시 사용).
func (s *Store) Clear() {
	s.mu.Lock()
	s.open = make(map[int64]*domain.OpenOrder)
	s.history = nil
	s.mu.Unlock()

	s.notify()
}

// Get은 ID로 열린 주문의 사본을 조회합니다
func (s *Store) Get(id int64) (domain.OpenOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.open[id]
	if !exists {
		return domain.OpenOrder{}, false
	}
	return *order, true
}

// Open은 열린 주문의 사본 목록을 최신순으로 반환합니다
func (s *Store) Open() []domain.OpenOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OpenOrder, 0, len(s.open))
	for _, order := range s.open {
		result = append(result, *order)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// History는 종료된 주문 이력의 사본을 최신순으로 반환합니다
func (s *Store) History() []domain.OpenOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OpenOrder, len(s.history))
	copy(result, s.history)
	return result
}

// Len은 열린 주문의 개수를 반환합니다
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}
