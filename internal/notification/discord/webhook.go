package discord

import (
	"fmt"
	"time"

	"github.com/assist-by/terminal/internal/domain"
	"github.com/assist-by/terminal/internal/notification"
)

const footerText = "LFES Terminal 🛰️"

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.infoWebhook, msg)
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.errorWebhook, msg)
}

// SendOrderInfo는 주문 접수/취소 정보를 전송합니다
func (c *Client) SendOrderInfo(order domain.OpenOrder) error {
	title := fmt.Sprintf("주문 접수: %s", order.Pair)
	if order.Status == domain.OrderCancelled {
		title = fmt.Sprintf("주문 취소: %s", order.Pair)
	}

	embed := NewEmbed().
		SetTitle(title).
		AddField("방향", string(order.Side), true).
		AddField("가격", fmt.Sprintf("$%.2f", order.Price), true).
		AddField("수량", fmt.Sprintf("%.8f", order.Amount), true).
		AddField("상태", string(order.Status), true).
		SetColor(notification.GetColorForSide(order.Side)).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.tradeWebhook, msg)
}

// SendPnL은 실현 손익 알림을 전송합니다
func (c *Client) SendPnL(trade domain.Trade) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("실현 손익: %s", trade.Pair)).
		AddField("방향", string(trade.Side), true).
		AddField("체결가", fmt.Sprintf("$%.2f", trade.Price), true).
		AddField("수량", fmt.Sprintf("%.8f", trade.Amount), true).
		AddField("실현 손익", fmt.Sprintf("$%+.2f", trade.RealizedPnL), true).
		SetColor(notification.GetColorForPnL(trade.RealizedPnL)).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.tradeWebhook, msg)
}
