package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pumpwatch/internal/model"
)

var testAlert = model.NewBuyAlert("BONK_X", "TokA", 25.123, 15.5, 2_345_678)

type recordingNotifier struct {
	name string
	err  error

	mu    sync.Mutex
	got   []model.AlertEvent
	delay time.Duration
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, a model.AlertEvent) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestDispatcher_FailingChannelDoesNotStopOthers(t *testing.T) {
	bad := &recordingNotifier{name: "bad", err: errors.New("down")}
	good := &recordingNotifier{name: "good"}
	d := NewDispatcher(1, bad, good)

	var results []string
	d.OnDelivery = func(ch string, err error) {
		results = append(results, ch+":"+map[bool]string{true: "ok", false: "fail"}[err == nil])
	}

	if ok := d.Dispatch(context.Background(), testAlert); ok != 1 {
		t.Errorf("expected 1 successful channel, got %d", ok)
	}
	if good.count() != 1 || bad.count() != 1 {
		t.Errorf("expected both channels attempted")
	}
	if strings.Join(results, ",") != "bad:fail,good:ok" {
		t.Errorf("unexpected delivery results %v", results)
	}
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(2, &recordingNotifier{name: "n"})
	drops := 0
	d.OnDrop = func() { drops++ }

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			d.Enqueue(testAlert)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked with no worker running")
	}
	if drops != 3 {
		t.Errorf("expected 3 drops, got %d", drops)
	}
}

func TestDispatcher_WorkerDelivers(t *testing.T) {
	n := &recordingNotifier{name: "n", delay: 100 * time.Millisecond}
	d := NewDispatcher(8, n)
	ctx := context.Background()
	d.Start(ctx)
	d.Start(ctx) // idempotent
	defer d.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if !d.Enqueue(testAlert) {
			t.Fatal("enqueue rejected")
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Enqueue waited on delivery")
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n.count() != 3 {
		t.Errorf("expected 3 deliveries, got %d", n.count())
	}
}

func TestTelegram_DisabledIsNoop(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }))
	defer server.Close()

	tg := NewTelegramNotifier(TelegramConfig{Enabled: false, BotToken: "t", ChatID: "c", BaseURL: server.URL})
	if err := tg.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if hit {
		t.Error("disabled channel made a request")
	}
}

func TestTelegram_MissingCredentials(t *testing.T) {
	tg := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "t"})
	err := tg.Send(context.Background(), testAlert)
	var cfgErr *model.ConfigurationError
	if !errors.As(err, &cfgErr) || len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "TELEGRAM_CHAT_ID" {
		t.Fatalf("expected ConfigurationError for chat id, got %v", err)
	}
}

func TestTelegram_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["chat_id"] != "42" || body["parse_mode"] != "Markdown" {
			t.Errorf("unexpected body %v", body)
		}
		if !strings.Contains(body["text"], `BONK\_X`) || !strings.Contains(body["text"], "gmgn.ai/sol/token/TokA") {
			t.Errorf("unexpected text %q", body["text"])
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	tg := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "TOKEN", ChatID: "42", BaseURL: server.URL})
	if err := tg.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestTelegram_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer server.Close()

	tg := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "T", ChatID: "1", BaseURL: server.URL})
	err := tg.Send(context.Background(), testAlert)
	var httpErr *model.UpstreamHTTPError
	if !errors.As(err, &httpErr) || httpErr.Body != "Bad Request: chat not found" {
		t.Fatalf("expected UpstreamHTTPError with description, got %v", err)
	}
}

type fakeSubs struct {
	subs []model.Subscriber
	err  error
}

func (f fakeSubs) ActiveSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	return f.subs, f.err
}

func TestEmail_NoAPIKeyIsNoop(t *testing.T) {
	e := NewEmailNotifier(EmailConfig{}, fakeSubs{err: errors.New("must not be called")})
	if err := e.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestEmail_NoSubscribersIsNoop(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }))
	defer server.Close()

	e := NewEmailNotifier(EmailConfig{APIKey: "re_x", BaseURL: server.URL}, fakeSubs{})
	if err := e.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if hit {
		t.Error("sent email with no subscribers")
	}
}

func TestEmail_BlankAddressesAreNoop(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hit = true }))
	defer server.Close()

	subs := fakeSubs{subs: []model.Subscriber{
		{Email: "", Status: "active"},
		{Email: "", Status: "active"},
	}}
	e := NewEmailNotifier(EmailConfig{APIKey: "re_x", BaseURL: server.URL}, subs)
	if err := e.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if hit {
		t.Error("posted an empty batch")
	}
}

func TestEmail_BatchSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails/batch" || r.Header.Get("Authorization") != "Bearer re_x" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var batch []emailMessage
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(batch) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(batch))
		}
		if batch[0].To != "a@example.com" || batch[1].To != "b@example.com" {
			t.Errorf("unexpected recipients %+v", batch)
		}
		if batch[0].Subject != "🔔 RSI Alert: Buy Signal for BONK_X" || batch[0].From != DefaultEmailFrom {
			t.Errorf("unexpected headers %+v", batch[0])
		}
		if !strings.Contains(batch[0].HTML, "<code>15.50</code>") || !strings.Contains(batch[0].HTML, "$2.35M") {
			t.Errorf("unexpected html %s", batch[0].HTML)
		}
		io.WriteString(w, `{"data":[{"id":"1"},{"id":"2"}]}`)
	}))
	defer server.Close()

	subs := fakeSubs{subs: []model.Subscriber{
		{Email: "a@example.com", Status: "active"},
		{Email: "", Status: "active"},
		{Email: "b@example.com", Status: "active"},
	}}
	e := NewEmailNotifier(EmailConfig{APIKey: "re_x", BaseURL: server.URL}, subs)
	if err := e.Send(context.Background(), testAlert); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestEmail_RenderEscapes(t *testing.T) {
	a := testAlert
	a.Symbol = "<script>"
	html, err := RenderEmail(a)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("symbol not escaped")
	}
}

func TestWebhook_EmptyURLIsNoop(t *testing.T) {
	if err := NewWebhookNotifier("").Send(context.Background(), testAlert); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWebhook_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		json.NewDecoder(r.Body).Decode(&got)
		if got["symbol"] != "BONK_X" || got["rsi1h"] != "15.50" || got["ts"] == "" {
			t.Errorf("unexpected payload %v", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := NewWebhookNotifier(server.URL).Send(context.Background(), testAlert); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestHistoryNotifier_KeepsNewestFirst(t *testing.T) {
	h := NewHistoryNotifier(2)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		if err := h.Send(context.Background(), model.AlertEvent{Symbol: sym}); err != nil {
			t.Fatal(err)
		}
	}

	got := h.Recent(0)
	if len(got) != 2 || got[0].Symbol != "CCC" || got[1].Symbol != "BBB" {
		t.Fatalf("unexpected history %+v", got)
	}
	if got[0].FiredAt.IsZero() {
		t.Error("FiredAt should be stamped")
	}
}

type fakeFeed struct {
	alerts []model.AlertEvent
	err    error
}

func (f *fakeFeed) PublishIndicator(ctx context.Context, snap *model.IndicatorSnapshot) error {
	return nil
}

func (f *fakeFeed) PublishAlert(ctx context.Context, a model.AlertEvent) error {
	f.alerts = append(f.alerts, a)
	return f.err
}

func TestFeedNotifier_ForwardsAlert(t *testing.T) {
	feed := &fakeFeed{}
	n := NewFeedNotifier(feed)
	if err := n.Send(context.Background(), testAlert); err != nil {
		t.Fatal(err)
	}
	if len(feed.alerts) != 1 || feed.alerts[0].Symbol != testAlert.Symbol {
		t.Fatalf("unexpected feed alerts %+v", feed.alerts)
	}

	feed.err = errors.New("redis down")
	if err := n.Send(context.Background(), testAlert); err == nil {
		t.Error("publish error should surface to the dispatcher")
	}
}
