package apps

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

func newTestService(t *testing.T, ids []string) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:apphub_apps_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&App{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	generator := &staticIDGenerator{ids: ids}
	clock := func() time.Time { return time.UnixMilli(1700000000000).UTC() }

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: generator,
	})
	if err != nil {
		t.Fatalf("failed to construct apps service: %v", err)
	}

	return service, db
}

func mustAppID(t *testing.T, value string) AppID {
	t.Helper()
	id, err := NewAppID(value)
	if err != nil {
		t.Fatalf("unexpected app id error: %v", err)
	}
	return id
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	service, _ := newTestService(t, []string{"app-1"})

	record, err := service.Create(context.Background(), Draft{
		Name:        "Foo",
		Description: "A sample app",
		TechStack:   []string{"Go", "Postgres"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "app-1" {
		t.Fatalf("expected generated id app-1, got %q", record.ID)
	}
	if record.CreatedAtMs != 1700000000000 {
		t.Fatalf("expected clock timestamp, got %d", record.CreatedAtMs)
	}
}

func TestCreateKeepsClientSuppliedIdentity(t *testing.T) {
	service, _ := newTestService(t, nil)

	record, err := service.Create(context.Background(), Draft{
		ID:          "client-id",
		Name:        "Foo",
		Description: "A sample app",
		TechStack:   []string{"TS"},
		CreatedAtMs: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "client-id" {
		t.Fatalf("expected client id to survive, got %q", record.ID)
	}
	if record.CreatedAtMs != 1000 {
		t.Fatalf("expected client timestamp to survive, got %d", record.CreatedAtMs)
	}
}

func TestCreateNormalizesLegacyImageURLs(t *testing.T) {
	service, _ := newTestService(t, []string{"app-1"})

	record, err := service.Create(context.Background(), Draft{
		Name:         "Foo",
		Description:  "A sample app",
		TechStack:    []string{"Go"},
		ThumbnailURL: "https://example.com/thumb.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ImageURL != "https://example.com/thumb.png" {
		t.Fatalf("expected image url backfilled from thumbnail, got %q", record.ImageURL)
	}
	if record.ThumbnailURL != record.ImageURL {
		t.Fatalf("expected both legacy fields to converge, got %q vs %q", record.ThumbnailURL, record.ImageURL)
	}
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	service, _ := newTestService(t, []string{"app-1", "app-2", "app-3"})

	cases := []struct {
		name  string
		draft Draft
		want  error
	}{
		{name: "empty name", draft: Draft{Description: "d", TechStack: []string{"Go"}}, want: ErrInvalidName},
		{name: "empty description", draft: Draft{Name: "n", TechStack: []string{"Go"}}, want: ErrInvalidDescription},
		{name: "empty stack", draft: Draft{Name: "n", Description: "d"}, want: ErrInvalidTechStack},
		{name: "blank stack entry", draft: Draft{Name: "n", Description: "d", TechStack: []string{" "}}, want: ErrInvalidTechStack},
	}

	for _, testCase := range cases {
		_, err := service.Create(context.Background(), testCase.draft)
		if !errors.Is(err, testCase.want) {
			t.Fatalf("%s: expected %v, got %v", testCase.name, testCase.want, err)
		}
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	service, _ := newTestService(t, nil)

	draft := Draft{ID: "app-1", Name: "Foo", Description: "d", TechStack: []string{"Go"}, CreatedAtMs: 1000}
	if _, err := service.Create(context.Background(), draft); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.Create(context.Background(), draft)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	service, _ := newTestService(t, nil)

	seed := []Draft{
		{ID: "a1", Name: "Notes App", Description: "keeps notes", TechStack: []string{"Go", "SQLite"}, CreatedAtMs: 1000},
		{ID: "a2", Name: "Chat App", Description: "realtime chat", TechStack: []string{"TypeScript"}, CreatedAtMs: 3000},
		{ID: "a3", Name: "Budget Tool", Description: "tracks notes and spending", TechStack: []string{"Go"}, CreatedAtMs: 2000},
	}
	for _, draft := range seed {
		if _, err := service.Create(context.Background(), draft); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	all, err := service.List(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 apps, got %d", len(all))
	}
	if all[0].ID != "a2" || all[1].ID != "a3" || all[2].ID != "a1" {
		t.Fatalf("expected newest-first ordering, got %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	searched, err := service.List(context.Background(), Query{Search: "NOTES"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searched) != 2 {
		t.Fatalf("expected case-insensitive search over name and description to match 2, got %d", len(searched))
	}

	byStack, err := service.List(context.Background(), Query{TechStack: []string{"go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byStack) != 2 {
		t.Fatalf("expected tech stack intersection to match 2, got %d", len(byStack))
	}
	for _, record := range byStack {
		if record.ID == "a2" {
			t.Fatalf("a2 should not match a Go stack filter")
		}
	}
}

func TestUpdatePreservesUnspecifiedFields(t *testing.T) {
	service, _ := newTestService(t, nil)

	if _, err := service.Create(context.Background(), Draft{
		ID: "a1", Name: "Foo", Description: "original", TechStack: []string{"Go"},
		GithubURL: "https://github.com/x/foo", CreatedAtMs: 1000,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	newName := "Foo v2"
	updated, err := service.Update(context.Background(), mustAppID(t, "a1"), Patch{Name: &newName})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Foo v2" {
		t.Fatalf("expected name updated, got %q", updated.Name)
	}
	if updated.Description != "original" {
		t.Fatalf("expected description preserved, got %q", updated.Description)
	}
	if updated.GithubURL != "https://github.com/x/foo" {
		t.Fatalf("expected github url preserved, got %q", updated.GithubURL)
	}
	if updated.CreatedAtMs != 1000 {
		t.Fatalf("expected creation timestamp preserved, got %d", updated.CreatedAtMs)
	}
}

func TestUpdateConvergesLegacyImagePair(t *testing.T) {
	service, _ := newTestService(t, nil)

	if _, err := service.Create(context.Background(), Draft{
		ID: "a1", Name: "Foo", Description: "d", TechStack: []string{"Go"},
		ImageURL: "https://example.com/old.png", CreatedAtMs: 1000,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	newImage := "https://example.com/new.png"
	updated, err := service.Update(context.Background(), mustAppID(t, "a1"), Patch{ImageURL: &newImage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ImageURL != newImage || updated.ThumbnailURL != newImage {
		t.Fatalf("expected both image fields to converge on %q, got %q and %q", newImage, updated.ImageURL, updated.ThumbnailURL)
	}
}

func TestUpdateMissingAppReturnsNotFound(t *testing.T) {
	service, _ := newTestService(t, nil)

	name := "x"
	_, err := service.Update(context.Background(), mustAppID(t, "missing"), Patch{Name: &name})
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	service, _ := newTestService(t, nil)

	if _, err := service.Create(context.Background(), Draft{
		ID: "a1", Name: "Foo", Description: "d", TechStack: []string{"Go"}, CreatedAtMs: 1000,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := service.Delete(context.Background(), mustAppID(t, "a1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.Get(context.Background(), mustAppID(t, "a1"))
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	if err := service.Delete(context.Background(), mustAppID(t, "a1")); !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestExistsReflectsStoredApps(t *testing.T) {
	service, _ := newTestService(t, nil)

	if _, err := service.Create(context.Background(), Draft{
		ID: "a1", Name: "Foo", Description: "d", TechStack: []string{"Go"}, CreatedAtMs: 1000,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	exists, err := service.Exists(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatalf("expected a1 to exist")
	}

	exists, err = service.Exists(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected missing app to not exist")
	}
}
