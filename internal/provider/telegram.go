package provider

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// telegramSender is the subset of *tele.Bot used for delivery.
type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramProvider delivers reminders as HTML messages to one chat.
// The recipient email is only rendered into the text; routing is by chat id.
type TelegramProvider struct {
	bot    telegramSender
	chatID int64
}

func NewTelegramProvider(token string, chatID int64) (*TelegramProvider, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramProvider{bot: b, chatID: chatID}, nil
}

func (p *TelegramProvider) Deliver(ctx context.Context, payload domain.Payload) (*Receipt, error) {
	if err := payload.Validate(); err != nil {
		return nil, domain.Terminal(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := p.bot.Send(&tele.Chat{ID: p.chatID}, renderTelegram(payload), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return nil, classifyTelegram(err)
	}
	return &Receipt{
		MessageID: strconv.Itoa(msg.ID),
		Status:    "sent",
		Timestamp: msg.Time().UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

// classifyTelegram maps Bot API errors: 4xx codes other than 429 are terminal.
func classifyTelegram(err error) error {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			return domain.StatusError(503, err)
		}
		return domain.StatusError(apiErr.Code, err)
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return domain.StatusError(503, err)
	}
	return err
}

func renderTelegram(p domain.Payload) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(p.Title))
	b.WriteString("</b>")
	if p.TimeRemaining != "" {
		b.WriteString(" · ")
		b.WriteString(html.EscapeString(p.TimeRemaining))
	}
	if p.Message != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(p.Message))
	}
	for _, it := range p.Items {
		b.WriteString("\n• ")
		b.WriteString(html.EscapeString(it.Text))
		if it.Deadline != nil {
			b.WriteString(" (due ")
			b.WriteString(it.Deadline.Format("Jan 2 15:04"))
			b.WriteString(")")
		}
	}
	if p.Recipient != nil && p.Recipient.Email != "" {
		b.WriteString("\n→ ")
		b.WriteString(html.EscapeString(p.Recipient.Email))
	}
	return b.String()
}

var _ Provider = (*TelegramProvider)(nil)
