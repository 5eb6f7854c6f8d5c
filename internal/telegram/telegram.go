// Package telegram adapts the Telegram Bot API to the wizard.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kylejryan/field-report-bot/internal/schema"
	"github.com/kylejryan/field-report-bot/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MaxDownloadBytes is the largest file the Bot API lets bots download.
const MaxDownloadBytes = 20 << 20

var errTooLarge = errors.New("attachment exceeds download limit")

// api is the subset of *tgbotapi.BotAPI used here.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot sends and receives wizard messages over Telegram.
type Bot struct {
	api         api
	client      *http.Client
	log         *zap.Logger
	pollTimeout int
}

// New connects to the Bot API with token.
func New(token string, pollTimeout, downloadTimeout time.Duration, log *zap.Logger) (*Bot, error) {
	a, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	b := newBot(a, pollTimeout, log)
	if downloadTimeout > 0 {
		b.client.Timeout = downloadTimeout
	}
	b.log.Info("telegram bot authorized", zap.String("username", a.Self.UserName))
	return b, nil
}

func newBot(a api, pollTimeout time.Duration, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	secs := int(pollTimeout / time.Second)
	if secs <= 0 {
		secs = 60
	}
	return &Bot{
		api:         a,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		pollTimeout: secs,
	}
}

// Run long-polls for updates and passes each usable one to handle until ctx
// is cancelled.
func (b *Bot) Run(ctx context.Context, handle func(wizard.Message)) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	cfg.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return errors.New("telegram: update channel closed")
			}
			msg, ok := ToMessage(upd)
			if !ok {
				continue
			}
			handle(msg)
		}
	}
}

// ToMessage converts an update. Only private chat messages are used: the
// session is keyed on the sender, whose user id is also the chat the replies
// go to. Group and channel traffic is skipped.
func ToMessage(upd tgbotapi.Update) (wizard.Message, bool) {
	m := upd.Message
	if m == nil || m.Chat == nil || m.From == nil || !m.Chat.IsPrivate() {
		return wizard.Message{}, false
	}
	out := wizard.Message{
		SessionID: strconv.FormatInt(m.From.ID, 10),
		Text:      m.Text,
	}
	if m.IsCommand() {
		out.Command = strings.ToLower(m.Command())
	}
	for _, p := range m.Photo {
		out.Attachments = append(out.Attachments, schema.AttachmentRef{
			FileID: p.FileID,
			Width:  p.Width,
			Height: p.Height,
			Size:   int64(p.FileSize),
		})
	}
	if d := m.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		out.Attachments = append(out.Attachments, schema.AttachmentRef{
			FileID:   d.FileID,
			Size:     int64(d.FileSize),
			MIMEType: d.MimeType,
		})
	}
	if out.Text == "" && len(out.Attachments) > 0 {
		out.Text = m.Caption
	}
	return out, true
}

// Keyboard lays choices out as a one-time reply keyboard. Nil choices remove
// the keyboard.
func Keyboard(choices [][]string) any {
	if len(choices) == 0 {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(choices))
	for _, row := range choices {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(c))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// SendPrompt implements wizard.Messenger.
func (b *Bot) SendPrompt(_ context.Context, sessionID, text string, choices [][]string) error {
	chatID, err := chatID(sessionID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = Keyboard(choices)
	return b.send(msg)
}

// SendText implements wizard.Messenger.
func (b *Bot) SendText(_ context.Context, sessionID, text string) error {
	chatID, err := chatID(sessionID)
	if err != nil {
		return err
	}
	return b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", msg.ChatID, err)
	}
	return nil
}

// Download implements wizard.Messenger.
func (b *Bot) Download(ctx context.Context, ref schema.AttachmentRef) ([]byte, error) {
	if ref.Size > MaxDownloadBytes {
		return nil, errTooLarge
	}
	url, err := b.api.GetFileDirectURL(ref.FileID)
	if err != nil {
		return nil, fmt.Errorf("telegram: resolve file %s: %w", ref.FileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: %w", ref.FileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download %s: status %d", ref.FileID, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s: %w", ref.FileID, err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func chatID(sessionID string) (int64, error) {
	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: bad session id %q: %w", sessionID, err)
	}
	return id, nil
}
