package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// LFES 백엔드 API 설정
	API struct {
		BaseURL  string        `envconfig:"LFES_BASE_URL" default:"http://localhost:8000"`
		WSURL    string        `envconfig:"LFES_WS_URL" default:"ws://localhost:8000/orders/ws"`
		Email    string        `envconfig:"LFES_EMAIL" required:"true"`
		Password string        `envconfig:"LFES_PASSWORD" required:"true"`
		Timeout  time.Duration `envconfig:"LFES_TIMEOUT" default:"10s"`
	}

	// 디스코드 웹훅 설정 (비워두면 알림을 보내지 않음)
	Discord struct {
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
	}

	// 상태 조정 엔진 설정
	Engine struct {
		PollInterval           time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
		SettleDelay            time.Duration `envconfig:"SETTLE_DELAY" default:"700ms"`
		UnconfirmedTimeout     time.Duration `envconfig:"UNCONFIRMED_TIMEOUT" default:"90s"`
		PollFailureNotifyAfter int           `envconfig:"POLL_FAILURE_NOTIFY_AFTER" default:"3"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("LFES_BASE_URL은 비워둘 수 없습니다")
	}

	if cfg.Engine.PollInterval < 1*time.Second {
		return fmt.Errorf("POLL_INTERVAL은 1초 이상이어야 합니다")
	}

	if cfg.Engine.SettleDelay <= 0 {
		return fmt.Errorf("SETTLE_DELAY는 0보다 커야 합니다")
	}

	if cfg.Engine.UnconfirmedTimeout < cfg.Engine.PollInterval {
		return fmt.Errorf("UNCONFIRMED_TIMEOUT은 POLL_INTERVAL 이상이어야 합니다")
	}

	if cfg.Engine.PollFailureNotifyAfter < 1 {
		return fmt.Errorf("POLL_FAILURE_NOTIFY_AFTER는 1 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
