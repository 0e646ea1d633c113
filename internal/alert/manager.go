package alert

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// Event describes an upstream failure an operator should look at.
type Event struct {
	Name     string
	Exchange string
	Method   string
	Detail   string
}

// Alerter is what the gateway raises events through. Raise never blocks.
type Alerter interface {
	Raise(ev Event)
}

const (
	defaultQueueSize          = 128
	defaultDropReportInterval = time.Minute
	defaultCooldown           = 30 * time.Second
	notifyTimeout             = 20 * time.Second
)

type ManagerOptions struct {
	QueueSize          int
	DropReportInterval time.Duration
	// Cooldown suppresses repeats of the same exchange+event pair. Zero keeps
	// every event.
	Cooldown time.Duration
}

type Manager struct {
	instance string
	notifier Notifier
	queue    chan Event
	stop     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	dropReportInterval   time.Duration
	droppedTotal         uint64
	droppedSinceReported uint64
	suppressedTotal      uint64

	cooldown time.Duration
	now      func() time.Time
	lastMu   sync.Mutex
	lastSent map[string]time.Time

	mu     sync.RWMutex
	closed bool
}

func NewManager(instance string, notifier Notifier) *Manager {
	return NewManagerWithOptions(instance, notifier, ManagerOptions{
		QueueSize:          defaultQueueSize,
		DropReportInterval: defaultDropReportInterval,
		Cooldown:           defaultCooldown,
	})
}

// NewManagerWithOptions returns nil when notifier is nil; a nil *Manager is a
// valid no-op Alerter.
func NewManagerWithOptions(instance string, notifier Notifier, opts ManagerOptions) *Manager {
	if notifier == nil {
		return nil
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	m := &Manager{
		instance:           instance,
		notifier:           notifier,
		queue:              make(chan Event, queueSize),
		stop:               make(chan struct{}),
		done:               make(chan struct{}),
		dropReportInterval: max(opts.DropReportInterval, 0),
		cooldown:           max(opts.Cooldown, 0),
		now:                time.Now,
		lastSent:           make(map[string]time.Time),
	}
	m.wg.Add(1)
	go m.loop()
	if m.dropReportInterval > 0 {
		m.wg.Add(1)
		go m.dropReportLoop()
	}
	go func() {
		m.wg.Wait()
		close(m.done)
	}()
	return m
}

func (m *Manager) Raise(ev Event) {
	if m == nil || m.notifier == nil {
		return
	}
	if m.suppressed(ev) {
		atomic.AddUint64(&m.suppressedTotal, 1)
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- ev:
	default:
		droppedTotal := atomic.AddUint64(&m.droppedTotal, 1)
		// First drop in a window is logged right away, the rest go into the periodic summary.
		if atomic.AddUint64(&m.droppedSinceReported, 1) == 1 {
			logs.Errorf("event=alert_queue_dropped target_event=%q exchange=%s dropped_total=%d queue_cap=%d",
				ev.Name, ev.Exchange, droppedTotal, cap(m.queue))
		}
	}
}

func (m *Manager) suppressed(ev Event) bool {
	if m.cooldown == 0 {
		return false
	}
	key := ev.Exchange + "|" + ev.Name
	now := m.now()
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		return true
	}
	m.lastSent[key] = now
	return false
}

// Close stops intake and waits until queued events are delivered or ctx ends.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	for {
		select {
		case ev := <-m.queue:
			m.send(ev)
		case <-m.stop:
			for {
				select {
				case ev := <-m.queue:
					m.send(ev)
				default:
					m.reportDropped()
					return
				}
			}
		}
	}
}

func (m *Manager) dropReportLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.dropReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.reportDropped()
		case <-m.stop:
			m.reportDropped()
			return
		}
	}
}

func (m *Manager) reportDropped() {
	dropped := atomic.SwapUint64(&m.droppedSinceReported, 0)
	if dropped == 0 {
		return
	}
	logs.Errorf("event=alert_queue_dropped_report dropped_since_last=%d dropped_total=%d suppressed_total=%d",
		dropped, atomic.LoadUint64(&m.droppedTotal), atomic.LoadUint64(&m.suppressedTotal))
}

func (m *Manager) droppedStats() (total, pending uint64) {
	if m == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&m.droppedTotal), atomic.LoadUint64(&m.droppedSinceReported)
}

func (m *Manager) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, m.message(ev)); err != nil {
		logs.Errorf("event=alert_notify_failed target_event=%q exchange=%s err=%q", ev.Name, ev.Exchange, err.Error())
	}
}

func (m *Manager) message(ev Event) string {
	fields := map[string]string{
		"exchange": ev.Exchange,
		"method":   ev.Method,
		"detail":   ev.Detail,
	}
	lines := []string{
		"[exgate] " + ev.Name,
		"time: " + time.Now().UTC().Format(time.RFC3339),
		"instance: " + m.instance,
	}
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+": "+fields[k])
	}
	return strings.Join(lines, "\n")
}
