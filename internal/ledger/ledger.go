// Package ledger는 체결 원장에서 포지션과 손익을 계산하는 순수 회계 로직을 제공합니다.
package ledger

import (
	"github.com/assist-by/terminal/internal/domain"
)

// Compute는 단일 거래쌍의 체결 원장과 마크 가격으로 포지션을 계산합니다.
// trades는 원장 순서(최신이 앞)로 전달되며 내부에서 과거→최신 순으로 처리됩니다.
// 순수 함수이며 입력을 변경하지 않습니다.
//
// 가중평균 매입단가(WACB) 방식:
//   - 매수: wacb' = (inv*wacb + amount*price) / (inv + amount)
//   - 매도: realized += amount * (price - wacb); 재고가 0 이하로 내려가면
//     재고를 0으로 고정하고 WACB를 초기화합니다. 청산된 포지션의 단가는
//     다음 포지션으로 승계되지 않습니다.
//
// 가격이나 수량이 0 이하인 체결이 있으면 domain.ErrInvalidTrade를 반환합니다.
func Compute(trades []domain.Trade, markPrice float64) (domain.Position, error) {
	var (
		pair      string
		inventory float64
		costBasis float64
		realized  float64
	)

	// 원장은 최신순이므로 뒤에서부터 처리합니다
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if err := t.Validate(); err != nil {
			return domain.Position{}, err
		}
		if pair == "" {
			pair = t.Pair
		}

		switch t.Side {
		case domain.Buy:
			next := inventory + t.Amount
			if next > 0 {
				costBasis = (inventory*costBasis + t.Amount*t.Price) / next
			}
			inventory = next

		case domain.Sell:
			// 보유 재고 없이 도착한 매도도 같은 식으로 계산됩니다. wacb=0이므로
			// 매도 대금 전체가 손익으로 잡히며, 공매도 포지션은 따로 모델링하지
			// 않습니다. 호출자는 이 값이 의미 없는 결과일 수 있음을 감안해야 합니다.
			realized += t.Amount * (t.Price - costBasis)
			inventory -= t.Amount
			if inventory <= 0 {
				inventory = 0
				costBasis = 0
			}
		}
	}

	unrealized := inventory * (markPrice - costBasis)

	return domain.Position{
		Pair:          pair,
		Inventory:     inventory,
		CostBasis:     costBasis,
		RealizedPnL:   realized,
		UnrealizedPnL: unrealized,
		Total:         realized + unrealized,
		MarkPrice:     markPrice,
	}, nil
}

// ComputeAll은 여러 거래쌍이 섞인 원장을 거래쌍별로 나누어 계산합니다.
// markPrices에 없는 거래쌍은 마크 가격 0으로 평가됩니다.
func ComputeAll(trades []domain.Trade, markPrices map[string]float64) (map[string]domain.Position, error) {
	grouped := make(map[string][]domain.Trade)
	for _, t := range trades {
		grouped[t.Pair] = append(grouped[t.Pair], t)
	}

	positions := make(map[string]domain.Position, len(grouped))
	for pair, pairTrades := range grouped {
		position, err := Compute(pairTrades, markPrices[pair])
		if err != nil {
			return nil, err
		}
		positions[pair] = position
	}

	return positions, nil
}
