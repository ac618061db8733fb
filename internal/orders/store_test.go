package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/terminal/internal/domain"
)

func newTestOrder(id int64) domain.OpenOrder {
	return domain.OpenOrder{
		ID:     id,
		Pair:   "BTC/USDT",
		Side:   domain.Buy,
		Price:  100,
		Amount: 1,
		Status: domain.OrderPending,
	}
}

func TestStore_Create(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Create(newTestOrder(1)))
	assert.Equal(t, 1, store.Len())

	// 같은 ID로 다시 생성하면 실패해야 합니다
	err := store.Create(newTestOrder(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// 상태는 항상 pending으로 강제됩니다
	order := newTestOrder(2)
	order.Status = domain.OrderFilling
	require.NoError(t, store.Create(order))
	created, ok := store.Get(2)
	require.True(t, ok)
	assert.Equal(t, domain.OrderPending, created.Status)
}

func TestStore_Upsert(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestOrder(1)))

	filled := 0.5
	patch := domain.OrderPatch{ID: 1, Filled: &filled}

	store.Upsert(patch)
	once, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, 0.5, once.Filled)

	// 같은 패치를 두 번 적용해도 상태가 달라지지 않아야 합니다 (멱등성)
	store.Upsert(patch)
	twice, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, once, twice)

	// 알 수 없는 ID에 대한 패치는 주문을 만들지 않습니다
	store.Upsert(domain.OrderPatch{ID: 99, Filled: &filled})
	_, ok = store.Get(99)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_MarkFilling(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestOrder(1)))

	store.MarkFilling(1)
	order, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.OrderFilling, order.Status)

	// 중복 이벤트는 멱등하게 처리됩니다
	store.MarkFilling(1)
	order, _ = store.Get(1)
	assert.Equal(t, domain.OrderFilling, order.Status)

	// 이미 재조정으로 제거된 주문에 대한 이벤트는 에러가 아닙니다
	store.MarkFilling(42)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Settle(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Create(newTestOrder(1)))
	store.MarkFilling(1)

	settled, ok := store.Settle(1)
	require.True(t, ok)
	assert.Equal(t, domain.OrderFilled, settled.Status)
	assert.Equal(t, 0, store.Len())

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderFilled, history[0].Status)

	// 정산 시점에 주문이 없으면 조용히 건너뜁니다
	_, ok = store.Settle(1)
	assert.False(t, ok)

	// pending 상태에서는 바로 정산되지 않습니다
	require.NoError(t, store.Create(newTestOrder(2)))
	_, ok = store.Settle(2)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *Store)
		id      int64
		wantErr error
	}{
		{
			name:    "pending 주문 취소는 성공",
			prepare: func(s *Store) { _ = s.Create(newTestOrder(1)) },
			id:      1,
		},
		{
			name: "filling 주문 취소는 거부",
			prepare: func(s *Store) {
				_ = s.Create(newTestOrder(1))
				s.MarkFilling(1)
			},
			id:      1,
			wantErr: ErrInvalidTransition,
		},
		{
			name: "filled 주문 취소는 주문 없음",
			prepare: func(s *Store) {
				_ = s.Create(newTestOrder(1))
				s.MarkFilling(1)
				_, _ = s.Settle(1)
			},
			id:      1,
			wantErr: ErrOrderNotFound,
		},
		{
			name:    "없는 주문 취소는 주문 없음",
			prepare: func(s *Store) {},
			id:      7,
			wantErr: ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			tt.prepare(store)

			err := store.Cancel(tt.id)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var orderErr *OrderError
				require.True(t, errors.As(err, &orderErr))
				assert.Equal(t, tt.id, orderErr.OrderID)
				return
			}

			require.NoError(t, err)
			_, ok := store.Get(tt.id)
			assert.False(t, ok)

			history := store.History()
			require.Len(t, history, 1)
			assert.Equal(t, domain.OrderCancelled, history[0].Status)
		})
	}
}

func TestStore_ReplaceFromSnapshot(t *testing.T) {
	store := NewStore()

	// 서버가 알고 있는 주문과 낙관적 주문을 섞어 둡니다
	confirmed := newTestOrder(1)
	require.NoError(t, store.Create(confirmed))

	optimistic := newTestOrder(2)
	optimistic.Unconfirmed = true
	optimistic.ClientOrderID = "local-2"
	require.NoError(t, store.Create(optimistic))

	stale := newTestOrder(3)
	stale.Unconfirmed = true
	stale.CreatedAt = time.Now().Add(-5 * time.Minute)
	require.NoError(t, store.Create(stale))

	// 스냅샷에는 1번만 포함되어 있습니다
	expired := store.ReplaceFromSnapshot([]domain.OpenOrder{newTestOrder(1)}, time.Minute)

	// 1번: 스냅샷이 권위. 2번: 아직 어린 낙관적 주문이므로 유지.
	// 3번: 기한이 지난 낙관적 주문이므로 폐기.
	assert.Equal(t, 1, expired)
	assert.Equal(t, 2, store.Len())

	_, ok := store.Get(1)
	assert.True(t, ok)

	kept, ok := store.Get(2)
	require.True(t, ok, "미확인 낙관적 주문이 스냅샷 교체 후에도 남아 있어야 합니다")
	assert.True(t, kept.Unconfirmed)
	assert.Equal(t, "local-2", kept.ClientOrderID)

	_, ok = store.Get(3)
	assert.False(t, ok)

	// 다음 스냅샷이 2번을 포함하면 확인 처리됩니다
	store.ReplaceFromSnapshot([]domain.OpenOrder{newTestOrder(1), newTestOrder(2)}, time.Minute)
	kept, ok = store.Get(2)
	require.True(t, ok)
	assert.False(t, kept.Unconfirmed)
	assert.Equal(t, "local-2", kept.ClientOrderID, "확인되더라도 클라이언트 주문 ID는 유지됩니다")

	// 확인된 주문이 스냅샷에서 빠지면 서버가 제거한 것이므로 사라집니다
	store.ReplaceFromSnapshot([]domain.OpenOrder{newTestOrder(1)}, time.Minute)
	_, ok = store.Get(2)
	assert.False(t, ok)
}

func TestStore_ChangeNotification(t *testing.T) {
	changes := 0
	store := NewStore(WithChangeFunc(func() { changes++ }))

	require.NoError(t, store.Create(newTestOrder(1)))
	store.MarkFilling(1)
	_, _ = store.Settle(1)

	assert.Equal(t, 3, changes)

	// 아무것도 바꾸지 않는 호출은 알림을 보내지 않습니다
	before := changes
	store.MarkFilling(42)
	store.Upsert(domain.OrderPatch{ID: 42})
	assert.Equal(t, before, changes)
}
