package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"taskflow/internal/config"
	"taskflow/internal/engine"
	"taskflow/internal/logging"
)

type capturedHook struct {
	mu        sync.Mutex
	types     []string
	signature string
	body      []byte
}

func (c *capturedHook) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var evt webhookEvent
	_ = json.Unmarshal(body, &evt)
	c.mu.Lock()
	c.types = append(c.types, evt.Type)
	c.signature = r.Header.Get(SignatureHeader)
	c.body = body
	c.mu.Unlock()
}

func TestDispatcherDeliversSignedFilteredEvents(t *testing.T) {
	srv := newTestServer(t, "")
	hook := &capturedHook{}
	receiver := httptest.NewServer(http.HandlerFunc(hook.handler))
	defer receiver.Close()

	d := NewDispatcher(srv.Engine.Repo, []config.Webhook{{URL: receiver.URL, Secret: "s3cret", Events: []string{"task.*"}}}, logging.Discard())
	ctx := context.Background()
	d.DispatchOnce(ctx)
	if len(hook.types) != 0 {
		t.Fatalf("events before the first pass must not be replayed: %v", hook.types)
	}

	if _, err := srv.Engine.CreateTask(ctx, engine.TaskCreateOptions{Title: "Hooked", AssigneeID: "ada", ActorID: "mgr"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := srv.Engine.CreateTeam(ctx, "Ops", "", nil, "mgr"); err != nil {
		t.Fatalf("create team: %v", err)
	}
	d.DispatchOnce(ctx)

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.types) != 1 || hook.types[0] != "task.created" {
		t.Fatalf("unexpected deliveries: %v", hook.types)
	}
	if hook.signature != Sign("s3cret", hook.body) {
		t.Fatalf("signature mismatch: %s", hook.signature)
	}
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	srv := newTestServer(t, "")
	var (
		mu       sync.Mutex
		fail     = true
		received int
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		received++
	}))
	defer receiver.Close()

	d := NewDispatcher(srv.Engine.Repo, []config.Webhook{{URL: receiver.URL, Events: []string{"team.created"}}}, logging.Discard())
	d.SetCursor(0, 0)
	ctx := context.Background()
	if _, err := srv.Engine.CreateTeam(ctx, "Ops", "", nil, "mgr"); err != nil {
		t.Fatalf("create team: %v", err)
	}
	d.DispatchOnce(ctx)
	mu.Lock()
	fail = false
	mu.Unlock()
	d.DispatchOnce(ctx)
	d.DispatchOnce(ctx)
	mu.Lock()
	defer mu.Unlock()
	if received != 1 {
		t.Fatalf("expected exactly one successful delivery, got %d", received)
	}
}

func TestEventFilter(t *testing.T) {
	f := newEventFilter([]string{"task.*", "member.created"})
	for evt, want := range map[string]bool{
		"task.created":   true,
		"task.assigned":  true,
		"member.created": true,
		"member.updated": false,
		"team.created":   false,
	} {
		if f.match(evt) != want {
			t.Fatalf("match(%s) = %v", evt, !want)
		}
	}
	if !newEventFilter(nil).match("anything") || !newEventFilter([]string{"*"}).match("x") {
		t.Fatalf("empty and * filters match everything")
	}
}
