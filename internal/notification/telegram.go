package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pumpwatch/internal/model"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string
	BaseURL  string // default https://api.telegram.org
}

// TelegramNotifier sends alerts via Telegram Bot API.
type TelegramNotifier struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// BotToken: Bot API token from @BotFather
// ChatID: Target chat/group/channel ID
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = telegramBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TelegramNotifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send posts the alert as a Markdown message. A disabled channel is a
// silent no-op; an enabled one without credentials is a ConfigurationError.
func (t *TelegramNotifier) Send(ctx context.Context, alert model.AlertEvent) error {
	if !t.cfg.Enabled {
		return nil
	}
	var missing []string
	if t.cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if t.cfg.ChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return &model.ConfigurationError{Missing: missing}
	}

	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.cfg.ChatID,
		"text":       FormatTelegram(alert),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Description != "" {
			raw = []byte(apiErr.Description)
		}
		return &model.UpstreamHTTPError{Service: "telegram", Status: resp.StatusCode, Body: string(raw)}
	}

	log.Printf("[telegram] sent alert for %s to chat %s", alert.Symbol, t.cfg.ChatID)
	return nil
}

// FormatTelegram renders the alert in legacy Markdown.
func FormatTelegram(a model.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🔔 *RSI Alert* 🔔\n\n")
	fmt.Fprintf(&b, "Token: *%s*\n", escapeMarkdown(a.Symbol))
	fmt.Fprintf(&b, "Action: *%s*\n", a.Action)
	fmt.Fprintf(&b, "RSI (1H): `%s`\n", a.RSILong)
	fmt.Fprintf(&b, "RSI (5m): `%s`\n", a.RSIShort)
	fmt.Fprintf(&b, "MC: `%s`\n", a.MarketCap)
	fmt.Fprintf(&b, "CA: `%s`\n\n", a.TokenContractAddress)
	fmt.Fprintf(&b, "[View on GMGN](%s)", GMGNLink(a.TokenContractAddress))
	return b.String()
}

// GMGNLink is the token page on gmgn.ai.
func GMGNLink(token string) string {
	return "https://gmgn.ai/sol/token/" + token
}

// escapeMarkdown escapes the characters legacy Markdown treats as markup.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', '`'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		for _, sp := range specials {
			if s[i] == sp {
				buf.WriteByte('\\')
				break
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
