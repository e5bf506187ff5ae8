package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the notifier at another Bot API host
func (t *Telegram) WithBaseURL(url string) *Telegram {
	t.baseURL = strings.TrimRight(url, "/")
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, v notifier.Verdict) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram: bot_token and chat_id are required")
	}
	return t.sendMessage(ctx, formatVerdict(v))
}

func formatVerdict(v notifier.Verdict) string {
	var sb strings.Builder

	icon := "❌"
	if v.Confirmed {
		icon = "✅"
	}

	sb.WriteString(fmt.Sprintf("%s *%s*\n", icon, v.Headline()))
	if len(v.Symbols) > 0 {
		sb.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(v.Symbols, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Trades: %d, win rate %.1f%%\n", v.TotalTrades, v.WinRate))
	sb.WriteString(fmt.Sprintf("p-value: %.4f (%.2f std devs above random)\n", v.PValue, v.StdDevs))
	sb.WriteString(fmt.Sprintf("Degradation: %.1f%%", v.DegradationPct))
	if v.EffectSize != "" {
		sb.WriteString(fmt.Sprintf(", effect %s", v.EffectSize))
	}
	if v.ReportKey != "" {
		sb.WriteString(fmt.Sprintf("\nReport: `%s`", v.ReportKey))
	}

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
