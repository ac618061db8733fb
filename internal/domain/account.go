package domain

// User는 로그인한 계정 정보를 표현합니다
type User struct {
	ID      string  `json:"id"`      // 계정 ID
	Name    string  `json:"name"`    // 표시 이름
	Email   string  `json:"email"`   // 이메일
	Balance float64 `json:"balance"` // USDT 잔고
}

// Position은 체결 원장에서 파생되는 포지션 정보입니다.
// 저장되지 않으며 상태가 변할 때마다 원장 전체에서 다시 계산됩니다
// (증분 캐시로 인한 오차 누적을 피하기 위함).
type Position struct {
	Pair          string  // 거래쌍
	Inventory     float64 // 보유 수량 (항상 0 이상)
	CostBasis     float64 // 가중평균 매입단가 (WACB)
	RealizedPnL   float64 // 실현 손익
	UnrealizedPnL float64 // 미실현 손익 (마크 가격 기준)
	Total         float64 // 실현 + 미실현
	MarkPrice     float64 // 평가에 사용한 마크 가격
}
