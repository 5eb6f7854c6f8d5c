// Package slack posts failed report commits to a Slack channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"

	"go.uber.org/zap"
)

// minInterval rate-limits alerts to protect the channel from bursts.
const minInterval = 30 * time.Second

// Alerter posts alerts via chat.postMessage.
type Alerter struct {
	token   string
	channel string
	client  *http.Client
	apiURL  string
	log     *zap.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// NewAlerter creates a new Slack alerter.
func NewAlerter(token, channel string, log *zap.Logger) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  "https://slack.com/api/chat.postMessage",
		log:     log,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// CommitFailed implements report.Alerter.
func (a *Alerter) CommitFailed(ctx context.Context, r models.Report, cause error) error {
	a.mu.Lock()
	suppressed := time.Since(a.lastSent) < minInterval
	a.mu.Unlock()
	if suppressed {
		a.log.Debug("slack alert suppressed", zap.String("report_id", r.ReportID))
		return nil
	}

	errMsg := "unknown"
	if cause != nil {
		errMsg = cause.Error()
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": "Rapporto intervento non salvato",
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Operatore:*\n%s", r.OperatorName)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Cliente:*\n%s", r.CustomerName)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Report:*\n%s", r.ReportID)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Errore:*\n%s", errMsg)},
			},
		},
		{
			"type": "context",
			"elements": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("Chat %s, %s", r.SessionID, time.Now().UTC().Format(time.RFC3339))},
			},
		},
	}

	body, err := json.Marshal(map[string]any{
		"channel": a.channel,
		"blocks":  blocks,
		"text":    fmt.Sprintf("Rapporto non salvato: %s (%s)", r.CustomerName, errMsg),
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	var out apiResponse
	if json.Unmarshal(raw, &out) == nil && !out.OK && out.Error != "" {
		return fmt.Errorf("slack api: %s", out.Error)
	}

	// Only a delivered alert opens the quiet window.
	a.mu.Lock()
	a.lastSent = time.Now()
	a.mu.Unlock()

	a.log.Info("commit alert posted to Slack", zap.String("channel", a.channel), zap.String("report_id", r.ReportID))
	return nil
}
