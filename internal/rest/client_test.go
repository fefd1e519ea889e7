package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/api/v1"})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "   "}); err == nil {
		t.Fatalf("expected error for blank base url")
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]App{})
	}))
	// Rebuild with a trailing slash against the same server.
	rebuilt, err := NewClient(Config{BaseURL: client.baseURL + "/"})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	if _, err := rebuilt.ListApps(context.Background(), AppsQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v1/apps" {
		t.Fatalf("expected normalized path, got %q", gotPath)
	}
}

func TestListAppsEncodesQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]App{{ID: "a1", Name: "Foo"}})
	}))

	records, err := client.ListApps(context.Background(), AppsQuery{
		Search:    "foo",
		TechStack: []string{"Go", "TypeScript"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "a1" {
		t.Fatalf("unexpected records %v", records)
	}
	if gotQuery != "search=foo&techStack=Go&techStack=TypeScript" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestCreateAppSendsDraftAndDecodesRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/apps" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var draft AppDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			t.Errorf("failed to decode draft: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(App{ID: "a1", Name: draft.Name, CreatedAt: 1700000000000})
	}))

	record, err := client.CreateApp(context.Background(), AppDraft{Name: "Foo", Description: "d", TechStack: []string{"Go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "a1" || record.Name != "Foo" || record.CreatedAt != 1700000000000 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestServerVerdictBecomesAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "App not found"})
	}))

	_, err := client.GetApp(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "App not found" {
		t.Fatalf("expected decoded message, got %q", apiErr.Message)
	}
	if IsTransient(err) {
		t.Fatalf("server verdicts must not classify as transient")
	}
}

func TestErrorBodyWithoutMessageStillCarriesStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := client.GetApp(context.Background(), "a1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestConnectionFailureBecomesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: baseURL + "/api/v1"})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	_, err = client.ListApps(context.Background(), AppsQuery{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("connection failures must classify as transient")
	}
}

func TestContextCancellationSurfacesDirectly(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListApps(ctx, AppsQuery{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsTransient(err) {
		t.Fatalf("cancellation must not classify as transient")
	}
}

func TestVoteFeedbackSendsIncrement(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/feedback/f1/vote" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["increment"] != 3 {
			t.Errorf("expected increment 3, got %v", body)
		}
		_ = json.NewEncoder(w).Encode(Feedback{ID: "f1", Votes: 9})
	}))

	record, err := client.VoteFeedback(context.Background(), "f1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Votes != 9 {
		t.Fatalf("expected server count, got %d", record.Votes)
	}
}

func TestDeleteAppDecodesResult(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(DeleteResult{Message: "App deleted successfully", ID: "a1"})
	}))

	if err := client.DeleteApp(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(App{ID: "a/b"})
	}))

	if _, err := client.GetApp(context.Background(), "a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/v1/apps/a%2Fb" {
		t.Fatalf("expected escaped identifier, got %q", gotPath)
	}
}

func TestCheckHealthDecodesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Health{Status: "ok", Timestamp: "2026-01-02T15:04:05Z"})
	}))

	health, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if health.Status != "ok" || health.Timestamp == "" {
		t.Fatalf("unexpected health %+v", health)
	}
}
