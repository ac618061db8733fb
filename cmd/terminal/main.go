package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/assist-by/terminal/internal/config"
	"github.com/assist-by/terminal/internal/exchange/lfes"
	"github.com/assist-by/terminal/internal/notification"
	"github.com/assist-by/terminal/internal/notification/discord"
	"github.com/assist-by/terminal/internal/reconcile"
	"github.com/assist-by/terminal/internal/scheduler"
	"github.com/assist-by/terminal/internal/stream"
)

func main() {
	// 명령줄 플래그 정의
	onceFlag := flag.Bool("once", false, "상태를 한 번 동기화하고 출력한 뒤 종료")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("트레이딩 터미널 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	// 알림기 생성 (웹훅이 하나도 없으면 알림 없이 동작)
	var notifier notification.Notifier = notification.Noop{}
	if cfg.Discord.InfoWebhook != "" || cfg.Discord.TradeWebhook != "" || cfg.Discord.ErrorWebhook != "" {
		notifier = discord.NewClient(
			cfg.Discord.InfoWebhook,
			cfg.Discord.TradeWebhook,
			cfg.Discord.ErrorWebhook,
			discord.WithTimeout(10*time.Second),
		)
	}

	// LFES API 클라이언트 생성
	apiClient := lfes.NewClient(
		cfg.API.BaseURL,
		lfes.WithTimeout(cfg.API.Timeout),
	)

	// 로그인
	user, err := apiClient.Login(ctx, cfg.API.Email, cfg.API.Password)
	if err != nil {
		log.Printf("로그인 실패: %v", err)
		if err := notifier.SendError(fmt.Errorf("로그인 실패: %w", err)); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}
	log.Printf("로그인 성공: %s (%s)", user.Name, user.Email)

	// 시작 알림 전송
	if err := notifier.SendInfo(fmt.Sprintf("🚀 트레이딩 터미널이 시작되었습니다. (계정: %s)", user.Name)); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	// 조정자 생성
	coordinator := reconcile.NewCoordinator(apiClient, notifier, reconcile.Config{
		SettleDelay:            cfg.Engine.SettleDelay,
		UnconfirmedTimeout:     cfg.Engine.UnconfirmedTimeout,
		PollFailureNotifyAfter: cfg.Engine.PollFailureNotifyAfter,
	})

	// 단발 동기화 모드 처리
	if *onceFlag {
		coordinator.Start(ctx, nil)

		if err := coordinator.Execute(ctx); err != nil {
			log.Fatalf("상태 동기화 실패: %v", err)
		}

		// 반영이 끝날 때까지 짧게 대기한 뒤 요약을 출력합니다
		deadline := time.After(5 * time.Second)
		for coordinator.Snapshot().LastSyncAt.IsZero() {
			select {
			case <-deadline:
				log.Fatal("상태 동기화가 제시간에 끝나지 않았습니다")
			case <-time.After(50 * time.Millisecond):
			}
		}

		state := coordinator.Snapshot()
		log.Printf("잔고: $%.2f / 체결 %d건 / 열린 주문 %d건", state.User.Balance, len(state.Trades), len(state.OpenOrders))
		for pair, position := range state.Positions {
			log.Printf("%s: 재고 %.8f, WACB $%.2f, 실현 $%.2f", pair, position.Inventory, position.CostBasis, position.RealizedPnL)
		}

		coordinator.Close()
		if err := apiClient.Logout(ctx); err != nil {
			log.Printf("로그아웃 실패: %v", err)
		}
		log.Println("프로그램을 종료합니다.")
		return
	}

	// 이벤트 스트림 클라이언트 생성 및 시작
	streamClient := stream.NewClient(cfg.API.WSURL)
	streamClient.Start(ctx)

	// 조정자 쓰기 루프 시작
	coordinator.Start(ctx, streamClient.Events())

	// 폴링 스케줄러 생성 (시작 직후 즉시 1회 + 주기 반복)
	sched := scheduler.NewScheduler(cfg.Engine.PollInterval, coordinator)

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 스케줄러 시작
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("스케줄러 실행 중 에러 발생: %v", err)
			if err := notifier.SendError(err); err != nil {
				log.Printf("에러 알림 전송 실패: %v", err)
			}
		}
	}()

	// 시그널 대기
	sig := <-sigChan
	log.Printf("시스템 종료 신호 수신: %v", sig)

	// 역순 종료: 폴링 중지 → 스트림 종료 → 조정자 정리 → 로그아웃
	sched.Stop()
	streamClient.Close()
	coordinator.Close()

	logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer logoutCancel()
	if err := apiClient.Logout(logoutCtx); err != nil {
		log.Printf("로그아웃 실패: %v", err)
	}

	// 종료 알림 전송
	if err := notifier.SendInfo("👋 트레이딩 터미널이 정상적으로 종료되었습니다."); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}

	log.Println("프로그램을 종료합니다.")
}
