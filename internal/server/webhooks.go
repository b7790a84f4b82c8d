package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"taskflow/internal/config"
	"taskflow/internal/domain"
	"taskflow/internal/repo"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100

	SignatureHeader = "X-Taskflow-Signature"
)

// Dispatcher polls the event log and posts new events to configured hooks.
// Each hook keeps its own cursor, starting at the newest event seen when the
// dispatcher first looks at it. A failed delivery is retried on the next tick.
type Dispatcher struct {
	Repo     repo.Repo
	Hooks    []config.Webhook
	Interval time.Duration
	Client   *http.Client
	Logger   *log.Logger

	mu      sync.Mutex
	cursors map[int]int64
}

func NewDispatcher(r repo.Repo, hooks []config.Webhook, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		Repo:     r,
		Hooks:    hooks,
		Interval: defaultWebhookInterval,
		Client:   &http.Client{Timeout: defaultWebhookTimeout},
		Logger:   logger.WithPrefix("webhook"),
		cursors:  make(map[int]int64),
	}
}

// Run dispatches until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	if len(d.Hooks) == 0 {
		return
	}
	interval := d.Interval
	if interval <= 0 {
		interval = defaultWebhookInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce runs a single delivery pass over every active hook.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	for i, hook := range d.Hooks {
		if !hook.Active() || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatch(ctx, i, hook)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, idx int, hook config.Webhook) {
	cursor, err := d.cursorFor(ctx, idx)
	if err != nil {
		d.Logger.Error("init cursor failed", "url", hook.URL, "err", err)
		return
	}
	events, err := d.Repo.EventsAfter(ctx, cursor, defaultWebhookBatch)
	if err != nil {
		d.Logger.Error("fetch events failed", "err", err)
		return
	}
	filter := newEventFilter(hook.Events)
	for _, evt := range events {
		if filter.match(evt.Type) {
			if err := d.post(ctx, hook, evt); err != nil {
				d.Logger.Warn("delivery failed", "url", hook.URL, "event", evt.ID, "err", err)
				return
			}
		}
		d.setCursor(idx, evt.ID)
	}
}

// SetCursor positions hook idx so that only events after id are delivered.
func (d *Dispatcher) SetCursor(idx int, id int64) {
	d.setCursor(idx, id)
}

func (d *Dispatcher) cursorFor(ctx context.Context, idx int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursors == nil {
		d.cursors = make(map[int]int64)
	}
	if cur, ok := d.cursors[idx]; ok {
		return cur, nil
	}
	cur, err := d.Repo.LatestEventID(ctx)
	if err != nil {
		return 0, err
	}
	d.cursors[idx] = cur
	return cur, nil
}

func (d *Dispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	if d.cursors == nil {
		d.cursors = make(map[int]int64)
	}
	d.cursors[idx] = value
	d.mu.Unlock()
}

type webhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed "sha256=".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (d *Dispatcher) post(ctx context.Context, hook config.Webhook, evt domain.Event) error {
	payload := json.RawMessage("{}")
	if evt.Payload != "" && json.Valid([]byte(evt.Payload)) {
		payload = json.RawMessage(evt.Payload)
	}
	data, err := json.Marshal(webhookEvent{
		ID:         evt.ID,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Taskflow-Event", evt.Type)
	req.Header.Set("X-Taskflow-Delivery", strconv.FormatInt(evt.ID, 10))
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set(SignatureHeader, Sign(hook.Secret, data))
	}
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// eventFilter matches exact event types or prefixes written as "task.*".
type eventFilter struct {
	all      bool
	set      map[string]struct{}
	prefixes []string
}

func newEventFilter(events []string) eventFilter {
	f := eventFilter{set: make(map[string]struct{}, len(events))}
	for _, evt := range events {
		key := strings.TrimSpace(evt)
		switch {
		case key == "":
		case key == "*":
			return eventFilter{all: true}
		case strings.HasSuffix(key, ".*"):
			f.prefixes = append(f.prefixes, strings.TrimSuffix(key, "*"))
		default:
			f.set[key] = struct{}{}
		}
	}
	if len(f.set) == 0 && len(f.prefixes) == 0 {
		return eventFilter{all: true}
	}
	return f
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	if _, ok := f.set[evt]; ok {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(evt, p) {
			return true
		}
	}
	return false
}
