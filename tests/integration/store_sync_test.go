package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apphubhq/apphub/internal/apps"
	"github.com/apphubhq/apphub/internal/database"
	"github.com/apphubhq/apphub/internal/feedback"
	"github.com/apphubhq/apphub/internal/insights"
	"github.com/apphubhq/apphub/internal/rest"
	"github.com/apphubhq/apphub/internal/server"
	"github.com/apphubhq/apphub/internal/store"
	"github.com/gin-gonic/gin"
)

// newTestStack boots the full chain: SQLite, domain services, the gin router
// behind httptest, the REST client, and the synchronization store on top. The
// returned base URL allows a second client session against the same server.
func newTestStack(t *testing.T) (*store.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:apphub_integration_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := database.OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	idProvider := apps.NewUUIDProvider()
	appsService, err := apps.NewService(apps.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to construct apps service: %v", err)
	}
	feedbackService, err := feedback.NewService(feedback.ServiceConfig{Database: db, IDProvider: idProvider, AppChecker: appsService})
	if err != nil {
		t.Fatalf("failed to construct feedback service: %v", err)
	}
	insightsService, err := insights.NewService(insights.ServiceConfig{Database: db, IDProvider: idProvider, AppChecker: appsService})
	if err != nil {
		t.Fatalf("failed to construct insights service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		AppsService:     appsService,
		FeedbackService: feedbackService,
		InsightsService: insightsService,
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	apiServer := httptest.NewServer(handler)
	t.Cleanup(apiServer.Close)

	baseURL := apiServer.URL + "/api/v1"
	return newSessionStore(t, baseURL), baseURL
}

func newSessionStore(t *testing.T, baseURL string) *store.Store {
	t.Helper()
	client, err := rest.NewClient(rest.Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}
	mirror, err := store.New(store.Config{Client: client})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return mirror
}

func TestStoreSyncLifecycle(t *testing.T) {
	mirror, _ := newTestStack(t)
	ctx := context.Background()

	if err := mirror.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !mirror.IsLoaded() {
		t.Fatalf("expected store loaded")
	}
	if len(mirror.Apps()) != 0 {
		t.Fatalf("expected empty catalog, got %v", mirror.Apps())
	}

	app, err := mirror.AddApp(ctx, rest.AppDraft{
		Name:        "Portfolio Tracker",
		Description: "Tracks demo apps",
		TechStack:   []string{"Go", "TypeScript"},
	})
	if err != nil {
		t.Fatalf("add app failed: %v", err)
	}
	if app.ID == "" || app.CreatedAt == 0 {
		t.Fatalf("expected server-assigned identity, got %+v", app)
	}

	row, err := mirror.AddFeedback(ctx, rest.FeedbackDraft{
		AppID:       app.ID,
		Type:        "FEATURE",
		Title:       "Dark mode",
		Description: "Please",
	})
	if err != nil {
		t.Fatalf("add feedback failed: %v", err)
	}
	if row.Votes != 0 || row.Status != "OPEN" || row.Author != "Anonymous" {
		t.Fatalf("expected server defaults, got %+v", row)
	}

	voted, err := mirror.VoteFeedback(ctx, row.ID)
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if voted.Votes != 1 {
		t.Fatalf("expected 1 vote, got %d", voted.Votes)
	}
	local := mirror.GetAppFeedbacks(app.ID)
	if len(local) != 1 || local[0].Votes != 1 {
		t.Fatalf("expected mirror reconciled with server count, got %v", local)
	}

	name := "Portfolio Tracker v2"
	updated, err := mirror.UpdateApp(ctx, app.ID, rest.AppPatch{Name: &name})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != name || updated.Description != "Tracks demo apps" {
		t.Fatalf("expected partial update with preserved fields, got %+v", updated)
	}

	if err := mirror.RefreshFeedbacks(ctx, app.ID); err != nil {
		t.Fatalf("refresh feedbacks failed: %v", err)
	}
	if rows := mirror.GetAppFeedbacks(app.ID); len(rows) != 1 || rows[0].Votes != 1 {
		t.Fatalf("expected refresh to confirm server state, got %v", rows)
	}

	if err := mirror.DeleteFeedback(ctx, row.ID); err != nil {
		t.Fatalf("delete feedback failed: %v", err)
	}
	if err := mirror.DeleteApp(ctx, app.ID); err != nil {
		t.Fatalf("delete app failed: %v", err)
	}
	if _, ok := mirror.GetApp(app.ID); ok {
		t.Fatalf("expected app removed from mirror")
	}

	if err := mirror.RefreshApps(ctx); err != nil {
		t.Fatalf("refresh apps failed: %v", err)
	}
	if len(mirror.Apps()) != 0 {
		t.Fatalf("expected empty catalog after deletion, got %v", mirror.Apps())
	}
}

func TestVoteAgainstMissingFeedbackRollsBack(t *testing.T) {
	mirror, _ := newTestStack(t)
	ctx := context.Background()

	if err := mirror.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if _, err := mirror.VoteFeedback(ctx, "ghost"); err == nil {
		t.Fatalf("expected vote against missing feedback to fail")
	}
	if mirror.Err() == nil {
		t.Fatalf("expected store error recorded")
	}
}

func TestServerSideVoteSurvivesRefresh(t *testing.T) {
	mirror, baseURL := newTestStack(t)
	ctx := context.Background()

	if err := mirror.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	app, err := mirror.AddApp(ctx, rest.AppDraft{Name: "A", Description: "d", TechStack: []string{"Go"}})
	if err != nil {
		t.Fatalf("add app failed: %v", err)
	}
	row, err := mirror.AddFeedback(ctx, rest.FeedbackDraft{AppID: app.ID, Type: "BUG", Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("add feedback failed: %v", err)
	}

	// Another session votes three times through its own store.
	other := newSessionStore(t, baseURL)
	if err := other.Load(ctx); err != nil {
		t.Fatalf("second session load failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := other.VoteFeedback(ctx, row.ID); err != nil {
			t.Fatalf("vote %d failed: %v", i, err)
		}
	}

	if err := mirror.RefreshFeedbacks(ctx, app.ID); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	rows := mirror.GetAppFeedbacks(app.ID)
	if len(rows) != 1 || rows[0].Votes != 3 {
		t.Fatalf("expected server count 3 after refresh, got %v", rows)
	}
}
