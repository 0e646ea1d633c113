package alert

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"exgate/internal/config"
)

type notifierSpy struct {
	block   <-chan struct{}
	entered chan struct{}
	once    sync.Once

	mu   sync.Mutex
	msgs []string
}

func (n *notifierSpy) Notify(ctx context.Context, msg string) error {
	if n.entered != nil {
		n.once.Do(func() {
			close(n.entered)
		})
	}
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	return nil
}

func (n *notifierSpy) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func closeManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestManagerCloseFlushesQueuedEvents(t *testing.T) {
	spy := &notifierSpy{}
	m := NewManagerWithOptions("gw-1", spy, ManagerOptions{})
	if m == nil {
		t.Fatalf("NewManagerWithOptions() returned nil")
	}

	m.Raise(Event{Name: "upstream_unauthorized", Exchange: "Binance", Method: "GetBalances", Detail: "exchange unauthorized"})
	m.Raise(Event{Name: "upstream_unavailable", Exchange: "Binance"})
	closeManager(t, m)

	msgs := spy.messages()
	if len(msgs) != 2 {
		t.Fatalf("notified count = %d, want 2", len(msgs))
	}
	for _, want := range []string{"[exgate] upstream_unauthorized", "instance: gw-1", "exchange: Binance", "method: GetBalances", "detail: exchange unauthorized"} {
		if !strings.Contains(msgs[0], want) {
			t.Fatalf("first message missing %q, got %q", want, msgs[0])
		}
	}
	if strings.Contains(msgs[1], "method:") {
		t.Fatalf("empty fields should be omitted, got %q", msgs[1])
	}
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	m.Raise(Event{Name: "x"})
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if NewManager("gw", nil) != nil {
		t.Fatalf("NewManager(nil notifier) should return nil")
	}
}

func TestManagerCooldownSuppressesRepeats(t *testing.T) {
	spy := &notifierSpy{}
	m := NewManagerWithOptions("gw", spy, ManagerOptions{Cooldown: time.Minute})
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	m.Raise(Event{Name: "upstream_unavailable", Exchange: "Binance"})
	m.Raise(Event{Name: "upstream_unavailable", Exchange: "Binance"})
	m.Raise(Event{Name: "upstream_server_error", Exchange: "Binance"})
	now = now.Add(2 * time.Minute)
	m.Raise(Event{Name: "upstream_unavailable", Exchange: "Binance"})
	closeManager(t, m)

	if got := len(spy.messages()); got != 3 {
		t.Fatalf("notified count = %d, want 3", got)
	}
}

func TestManagerRaiseNonBlockingWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	spy := &notifierSpy{
		block:   block,
		entered: make(chan struct{}),
	}
	m := NewManagerWithOptions("gw", spy, ManagerOptions{})
	m.Raise(Event{Name: "seed"})
	select {
	case <-spy.entered:
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("notifier did not enter blocked state")
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			m.Raise(Event{Name: "spam"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("Raise() appears blocked when queue is full")
	}

	close(block)
	closeManager(t, m)
}

func TestManagerTracksDroppedCountAndPendingWindow(t *testing.T) {
	block := make(chan struct{})
	spy := &notifierSpy{
		block:   block,
		entered: make(chan struct{}),
	}
	m := NewManagerWithOptions("gw", spy, ManagerOptions{QueueSize: 1})

	m.Raise(Event{Name: "seed"})
	select {
	case <-spy.entered:
	case <-time.After(time.Second):
		t.Fatalf("notifier did not enter blocked state")
	}

	// The sender is parked in Notify, so one event fills the queue and the rest drop.
	m.Raise(Event{Name: "queue_fill"})
	for i := 0; i < 10; i++ {
		m.Raise(Event{Name: "spam"})
	}

	total, pending := m.droppedStats()
	if total != 10 || pending != 10 {
		t.Fatalf("dropped total/pending = %d/%d, want 10/10", total, pending)
	}

	close(block)
	closeManager(t, m)

	total, pending = m.droppedStats()
	if total != 10 || pending != 0 {
		t.Fatalf("after close dropped total/pending = %d/%d, want 10/0", total, pending)
	}
}

func TestManagerPeriodicDropReportResetsWindow(t *testing.T) {
	block := make(chan struct{})
	spy := &notifierSpy{
		block:   block,
		entered: make(chan struct{}),
	}
	m := NewManagerWithOptions("gw", spy, ManagerOptions{
		QueueSize:          1,
		DropReportInterval: 40 * time.Millisecond,
	})

	m.Raise(Event{Name: "seed"})
	select {
	case <-spy.entered:
	case <-time.After(time.Second):
		t.Fatalf("notifier did not enter blocked state")
	}
	m.Raise(Event{Name: "queue_fill"})
	for i := 0; i < 3; i++ {
		m.Raise(Event{Name: "spam"})
	}

	deadline := time.Now().Add(800 * time.Millisecond)
	for {
		if _, pending := m.droppedStats(); pending == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("drop window was not reset by the periodic report")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if total, _ := m.droppedStats(); total != 3 {
		t.Fatalf("dropped total = %d, want 3", total)
	}

	close(block)
	closeManager(t, m)
}

func TestTelegramNotifierSendsMessage(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "42", APIBaseURL: srv.URL + "/"})
	if err := n.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Fatalf("path = %q", path)
	}
	if got.ChatID != "42" || got.Text != "hello" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestTelegramNotifierReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "1", APIBaseURL: srv.URL})
	err := n.Notify(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("Notify() error = %v, want api error", err)
	}
}

func TestTelegramNotifierRedactsTokenOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "secret-token", ChatID: "1", APIBaseURL: url})
	err := n.Notify(context.Background(), "hello")
	if err == nil {
		t.Fatalf("Notify() error = nil, want transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("bot token leaked: %v", err)
	}
}

func TestTelegramDisabled(t *testing.T) {
	if n := NewTelegramNotifier(config.TelegramConfig{}); n != nil {
		t.Fatalf("NewTelegramNotifier(disabled) = %+v, want nil", n)
	}
}
