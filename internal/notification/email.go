package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pumpwatch/internal/model"
)

const (
	resendBaseURL = "https://api.resend.com"

	// DefaultEmailFrom is used when no sender is configured.
	DefaultEmailFrom = "Pumpwatch Signals <signals@pumpwatch.virtualchats.xyz>"
)

// EmailConfig configures the batch email channel.
type EmailConfig struct {
	APIKey  string
	From    string
	BaseURL string // default https://api.resend.com
}

// EmailNotifier sends one message per active subscriber in a single
// Resend batch call.
type EmailNotifier struct {
	cfg    EmailConfig
	subs   model.SubscriberStore
	client *http.Client
}

// NewEmailNotifier creates an email notifier reading recipients from subs.
func NewEmailNotifier(cfg EmailConfig, subs model.SubscriberStore) *EmailNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = resendBaseURL
	}
	if cfg.From == "" {
		cfg.From = DefaultEmailFrom
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &EmailNotifier{
		cfg:  cfg,
		subs: subs,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (e *EmailNotifier) Name() string { return "email" }

type emailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send emails every active subscriber. Without an API key, or with no
// active subscribers, it logs and returns nil.
func (e *EmailNotifier) Send(ctx context.Context, alert model.AlertEvent) error {
	if e.cfg.APIKey == "" {
		log.Printf("[email] API key not configured, skipping alert for %s", alert.Symbol)
		return nil
	}

	subs, err := e.subs.ActiveSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("email: load subscribers: %w", err)
	}
	html, err := RenderEmail(alert)
	if err != nil {
		return err
	}
	subject := EmailSubject(alert)

	batch := make([]emailMessage, 0, len(subs))
	for _, s := range subs {
		if s.Email == "" {
			continue
		}
		batch = append(batch, emailMessage{From: e.cfg.From, To: s.Email, Subject: subject, HTML: html})
	}
	if len(batch) == 0 {
		log.Printf("[email] no active subscribers with an address, skipping alert for %s", alert.Symbol)
		return nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("email: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/emails/batch", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return &model.UpstreamHTTPError{Service: "resend", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &model.UpstreamHTTPError{Service: "resend", Status: resp.StatusCode, Body: string(raw)}
	}

	log.Printf("[email] queued %d emails for %s", len(batch), alert.Symbol)
	return nil
}

// EmailSubject is the subject line for an alert.
func EmailSubject(a model.AlertEvent) string {
	return "🔔 RSI Alert: Buy Signal for " + a.Symbol
}

var emailTemplate = template.Must(template.New("alert").Parse(`
<div style="font-family: sans-serif; padding: 20px; border: 1px solid #ddd; border-radius: 8px; max-width: 600px; margin: auto;">
  <h2 style="text-align: center;">🔔 <strong>RSI Alert</strong> 🔔</h2>
  <p>Token: <strong>{{.Alert.Symbol}}</strong></p>
  <p>Action: <strong>{{.Alert.Action}}</strong></p>
  <p>RSI (1H): <code>{{.Alert.RSILong}}</code></p>
  <p>RSI (5m): <code>{{.Alert.RSIShort}}</code></p>
  <p>MC: <code>{{.Alert.MarketCap}}</code></p>
  <p>CA: <code>{{.Alert.TokenContractAddress}}</code></p>
  <p style="margin-top: 20px;">
    <a href="{{.Link}}" style="display: inline-block; padding: 10px 15px; background-color: #007bff; color: #ffffff; text-decoration: none; border-radius: 5px;">View on GMGN</a>
  </p>
  <br>
  <p style="font-size: 12px; color: #888;"><em>Disclaimer: This is not financial advice. Do your own research.</em></p>
</div>
`))

// RenderEmail renders the HTML body for an alert.
func RenderEmail(a model.AlertEvent) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Alert model.AlertEvent
		Link  string
	}{a, GMGNLink(a.TokenContractAddress)})
	if err != nil {
		return "", fmt.Errorf("email: render: %w", err)
	}
	return buf.String(), nil
}
