package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/assist-by/terminal/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// newLedger는 과거→최신 순으로 나열된 체결을 원장 순서(최신이 앞)로 변환합니다
func newLedger(oldestFirst ...domain.Trade) []domain.Trade {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, len(oldestFirst))
	for i, t := range oldestFirst {
		t.ID = int64(i + 1)
		t.Pair = "BTC/USDT"
		t.Time = baseTime.Add(time.Duration(i) * time.Minute)
		trades[len(oldestFirst)-1-i] = t
	}
	return trades
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		trades         []domain.Trade
		markPrice      float64
		wantInventory  float64
		wantCostBasis  float64
		wantRealized   float64
		wantUnrealized float64
	}{
		{
			name:   "빈 원장은 모든 값이 0",
			trades: nil,
		},
		{
			name: "매수 두 번의 가중평균 단가",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 100, Amount: 1},
				domain.Trade{Side: domain.Buy, Price: 200, Amount: 1},
			),
			markPrice:      150,
			wantInventory:  2,
			wantCostBasis:  150,
			wantRealized:   0,
			wantUnrealized: 0,
		},
		{
			name: "일부 매도는 WACB를 유지",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 100, Amount: 1},
				domain.Trade{Side: domain.Buy, Price: 200, Amount: 1},
				domain.Trade{Side: domain.Sell, Price: 180, Amount: 1},
			),
			markPrice:      180,
			wantInventory:  1,
			wantCostBasis:  150,
			wantRealized:   30,
			wantUnrealized: 30,
		},
		{
			name: "전량 청산 시 WACB 초기화",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 100, Amount: 1},
				domain.Trade{Side: domain.Buy, Price: 200, Amount: 1},
				domain.Trade{Side: domain.Sell, Price: 180, Amount: 1},
				domain.Trade{Side: domain.Sell, Price: 150, Amount: 1},
			),
			markPrice:      170,
			wantInventory:  0,
			wantCostBasis:  0,
			wantRealized:   30,
			wantUnrealized: 0,
		},
		{
			name: "미실현 손익은 마크 가격 기준",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 150, Amount: 1},
			),
			markPrice:      170,
			wantInventory:  1,
			wantCostBasis:  150,
			wantRealized:   0,
			wantUnrealized: 20,
		},
		{
			name: "보유량을 초과한 매도는 재고를 0으로 고정",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 100, Amount: 1},
				domain.Trade{Side: domain.Sell, Price: 120, Amount: 3},
			),
			markPrice:      100,
			wantInventory:  0,
			wantCostBasis:  0,
			wantRealized:   60, // 3 * (120 - 100)
			wantUnrealized: 0,
		},
		{
			name: "재고 없는 매도는 매도 대금 전체가 손익",
			trades: newLedger(
				domain.Trade{Side: domain.Sell, Price: 100, Amount: 2},
			),
			markPrice:      100,
			wantInventory:  0,
			wantCostBasis:  0,
			wantRealized:   200,
			wantUnrealized: 0,
		},
		{
			name: "청산 후 재진입은 새 단가로 시작",
			trades: newLedger(
				domain.Trade{Side: domain.Buy, Price: 100, Amount: 1},
				domain.Trade{Side: domain.Sell, Price: 110, Amount: 1},
				domain.Trade{Side: domain.Buy, Price: 200, Amount: 2},
			),
			markPrice:      210,
			wantInventory:  2,
			wantCostBasis:  200,
			wantRealized:   10,
			wantUnrealized: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			position, err := Compute(tt.trades, tt.markPrice)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}

			if !almostEqual(position.Inventory, tt.wantInventory) {
				t.Errorf("Inventory = %.6f, want %.6f", position.Inventory, tt.wantInventory)
			}
			if !almostEqual(position.CostBasis, tt.wantCostBasis) {
				t.Errorf("CostBasis = %.6f, want %.6f", position.CostBasis, tt.wantCostBasis)
			}
			if !almostEqual(position.RealizedPnL, tt.wantRealized) {
				t.Errorf("RealizedPnL = %.6f, want %.6f", position.RealizedPnL, tt.wantRealized)
			}
			if !almostEqual(position.UnrealizedPnL, tt.wantUnrealized) {
				t.Errorf("UnrealizedPnL = %.6f, want %.6f", position.UnrealizedPnL, tt.wantUnrealized)
			}
			if !almostEqual(position.Total, tt.wantRealized+tt.wantUnrealized) {
				t.Errorf("Total = %.6f, want %.6f", position.Total, tt.wantRealized+tt.wantUnrealized)
			}
			if position.Inventory < 0 {
				t.Errorf("Inventory = %.6f, 재고는 음수가 될 수 없습니다", position.Inventory)
			}
		})
	}
}

func TestCompute_InvalidTrade(t *testing.T) {
	tests := []struct {
		name   string
		trades []domain.Trade
	}{
		{
			name:   "수량이 0인 체결",
			trades: newLedger(domain.Trade{Side: domain.Buy, Price: 100, Amount: 0}),
		},
		{
			name:   "가격이 음수인 체결",
			trades: newLedger(domain.Trade{Side: domain.Sell, Price: -1, Amount: 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.trades, 100)
			if !errors.Is(err, domain.ErrInvalidTrade) {
				t.Errorf("Compute() error = %v, want ErrInvalidTrade", err)
			}
		})
	}
}

func TestCompute_InventoryNeverNegative(t *testing.T) {
	// 무작위에 가까운 매수/매도 시퀀스에서도 재고 불변식이 유지되는지 확인합니다
	sequence := []domain.Trade{
		{Side: domain.Buy, Price: 100, Amount: 0.5},
		{Side: domain.Sell, Price: 90, Amount: 2},
		{Side: domain.Buy, Price: 80, Amount: 1},
		{Side: domain.Sell, Price: 85, Amount: 0.4},
		{Side: domain.Sell, Price: 95, Amount: 0.6},
		{Side: domain.Buy, Price: 70, Amount: 3},
		{Side: domain.Sell, Price: 75, Amount: 5},
	}

	for n := 0; n <= len(sequence); n++ {
		position, err := Compute(newLedger(sequence[:n]...), 100)
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if position.Inventory < 0 {
			t.Errorf("%d개 체결 후 Inventory = %.6f, 재고는 음수가 될 수 없습니다", n, position.Inventory)
		}
		if almostEqual(position.Inventory, 0) && !almostEqual(position.CostBasis, 0) {
			t.Errorf("%d개 체결 후 재고가 0인데 CostBasis = %.6f", n, position.CostBasis)
		}
	}
}

func TestComputeAll(t *testing.T) {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: 3, Pair: "ETH/USDT", Side: domain.Buy, Price: 2000, Amount: 2, Time: baseTime.Add(2 * time.Minute)},
		{ID: 2, Pair: "BTC/USDT", Side: domain.Sell, Price: 110, Amount: 1, Time: baseTime.Add(time.Minute)},
		{ID: 1, Pair: "BTC/USDT", Side: domain.Buy, Price: 100, Amount: 2, Time: baseTime},
	}
	markPrices := map[string]float64{
		"BTC/USDT": 120,
		"ETH/USDT": 2100,
	}

	positions, err := ComputeAll(trades, markPrices)
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("len(positions) = %d, want 2", len(positions))
	}

	btc := positions["BTC/USDT"]
	if !almostEqual(btc.Inventory, 1) || !almostEqual(btc.RealizedPnL, 10) || !almostEqual(btc.UnrealizedPnL, 20) {
		t.Errorf("BTC 포지션 = %+v, want inventory 1, realized 10, unrealized 20", btc)
	}

	eth := positions["ETH/USDT"]
	if !almostEqual(eth.Inventory, 2) || !almostEqual(eth.UnrealizedPnL, 200) {
		t.Errorf("ETH 포지션 = %+v, want inventory 2, unrealized 200", eth)
	}
}
