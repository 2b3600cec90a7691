// ABOUTME: Telegram notifier that delivers approval requests to the reviewer
// ABOUTME: Raw tokens travel only inside approve/reject URLs, never in logs
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/harper/engage-standalone/internal/models"
)

// requestTimeout bounds every Telegram API call so a hung delivery can
// never stall a pipeline pass.
const requestTimeout = 30 * time.Second

func httpClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// TelegramNotifier sends one approval message per decision with inline
// approve/reject links pointing at the redemption endpoint.
type TelegramNotifier struct {
	Bot       *tgbotapi.BotAPI
	ChatID    int64
	PublicURL string
}

func NewTelegramNotifier(token, chatIDStr, publicURL string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient())
	if err != nil {
		return nil, err
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id: %v", err)
	}
	return &TelegramNotifier{
		Bot:       bot,
		ChatID:    chatID,
		PublicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// NotifyApproval delivers the decision context and draft with one-click
// approve/reject buttons. Delivery failure means the token must not be
// honored, so the error propagates to the caller.
func (n *TelegramNotifier) NotifyApproval(ctx context.Context, d *models.Decision, rawToken string) error {
	// The bot API offers no per-call context, so cancellation is checked
	// up front and the HTTP client timeout bounds the call itself.
	if err := ctx.Err(); err != nil {
		return err
	}
	msgText := fmt.Sprintf(
		"*Reply pending approval*\n\nr/%s · score %.2f · risk %.2f%s\n\n%s\n\n[Thread](%s)",
		escapeMarkdown(d.Subreddit),
		d.QualityScore,
		d.RiskScore,
		explorationTag(d),
		escapeMarkdown(d.Draft),
		d.ContextURL,
	)

	msg := tgbotapi.NewMessage(n.ChatID, msgText)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("✅ Approve", n.redeemURL(rawToken, "approve")),
			tgbotapi.NewInlineKeyboardButtonURL("❌ Reject", n.redeemURL(rawToken, "reject")),
		),
	)

	if _, err := n.Bot.Send(msg); err != nil {
		return fmt.Errorf("sending approval message: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) redeemURL(rawToken, action string) string {
	return fmt.Sprintf("%s/approve?token=%s&action=%s", n.PublicURL, url.QueryEscape(rawToken), action)
}

func explorationTag(d *models.Decision) string {
	if d.Exploration {
		return " · exploration pick"
	}
	return ""
}

// escapeMarkdown prevents Telegram markdown parse errors on draft text.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
