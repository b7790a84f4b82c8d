package taskflowsdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateAndListTasks(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tasks":
			var in NewTask
			_ = json.NewDecoder(r.Body).Decode(&in)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(Task{ID: "t1", Title: in.Title, Priority: in.Priority, Status: "todo"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tasks":
			gotQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode(PaginatedTasks{Items: []Task{{ID: "t1"}}, NextCursor: "c"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "tf_abc"
	task, err := c.CreateTask(context.Background(), NewTask{Title: "Write docs", Priority: "low"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "t1" || task.Title != "Write docs" || gotKey != "tf_abc" {
		t.Fatalf("unexpected task %+v (key %q)", task, gotKey)
	}
	page, err := c.ListTasks(context.Background(), TaskQuery{Status: "todo", Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor != "c" {
		t.Fatalf("unexpected page %+v", page)
	}
	if gotQuery != "limit=5&status=todo" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestSuggestAssigneesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var in struct {
			Task   TaskDraft `json:"task"`
			TeamID string    `json:"team_id"`
		}
		_ = json.Unmarshal(body, &in)
		if in.Task.Title != "Triage" || in.TeamID != "core" {
			t.Errorf("unexpected request body %s", body)
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"code":"recommendation_request_failed","message":"recommendation request failed: status 529: overloaded"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "jwt"
	_, err := c.SuggestAssignees(context.Background(), TaskDraft{Title: "Triage"}, "core")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "recommendation_request_failed" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestWorkloadAndNotifications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/workload":
			if r.URL.Query().Get("team_id") != "core" {
				t.Errorf("team filter not sent")
			}
			_, _ = io.WriteString(w, `{"capacity_hours":40,"members":[{"id":"ada","name":"Ada","workload_percentage":113,"status":{"label":"Overloaded","tier":"overloaded"}}],"summary":{"members":1,"average_percentage":113,"by_tier":{"overloaded":1}}}`)
		case "/v1/notifications":
			if r.URL.Query().Get("unread") != "true" {
				t.Errorf("unread filter not sent")
			}
			_, _ = io.WriteString(w, `{"items":[{"id":"n1","kind":"task_assigned","title":"New task assigned","read":false,"created_at":"2026-01-01T00:00:00Z"}],"unread":1}`)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	wl, err := c.Workload(context.Background(), "core")
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	if len(wl.Members) != 1 || wl.Members[0].Status.Tier != "overloaded" || wl.Summary.ByTier["overloaded"] != 1 {
		t.Fatalf("unexpected workload %+v", wl)
	}
	notes, err := c.Notifications(context.Background(), true)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if notes.Unread != 1 || notes.Items[0].Kind != "task_assigned" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
}
