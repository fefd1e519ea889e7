// Package store maintains the client-side mirror of the apps and feedback
// collections. It gives callers synchronous reads over the mirror while
// writes go through the REST contract: creates and updates are pessimistic
// (the mirror changes only once the server confirms), voting is optimistic
// (the local count moves first and rolls back on failure), and the initial
// load retries transient network failures with exponential backoff.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apphubhq/apphub/internal/rest"
	"go.uber.org/zap"
)

var (
	errMissingClient = errors.New("store: api client is required")
	noOpLogger       = zap.NewNop()
)

// Client is the slice of the REST contract the store drives.
type Client interface {
	ListApps(ctx context.Context, query rest.AppsQuery) ([]rest.App, error)
	CreateApp(ctx context.Context, draft rest.AppDraft) (rest.App, error)
	UpdateApp(ctx context.Context, id string, patch rest.AppPatch) (rest.App, error)
	DeleteApp(ctx context.Context, id string) error
	ListFeedback(ctx context.Context, query rest.FeedbackQuery) ([]rest.Feedback, error)
	CreateFeedback(ctx context.Context, draft rest.FeedbackDraft) (rest.Feedback, error)
	UpdateFeedback(ctx context.Context, id string, patch rest.FeedbackPatch) (rest.Feedback, error)
	VoteFeedback(ctx context.Context, id string, increment int64) (rest.Feedback, error)
	DeleteFeedback(ctx context.Context, id string) error
}

// Config describes the dependencies for the store.
type Config struct {
	Client  Client
	Backoff rest.BackoffPolicy
	Logger  *zap.Logger
}

// Store is the synchronization core. One Store serves one session; construct
// it when the session starts and discard it on teardown. All methods are safe
// for concurrent use; when two operations race on the same record, the last
// resolved server response wins.
type Store struct {
	client  Client
	backoff rest.BackoffPolicy
	logger  *zap.Logger

	mu            sync.Mutex
	apps          []rest.App
	feedbacks     []rest.Feedback
	isLoaded      bool
	lastErr       error
	loadingStates map[string]bool
}

// New validates the configuration and constructs a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}

	backoff := cfg.Backoff
	if backoff.MaxRetries == 0 && backoff.InitialDelay == 0 {
		backoff = rest.DefaultBackoff()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Store{
		client:        cfg.Client,
		backoff:       backoff,
		logger:        logger,
		loadingStates: make(map[string]bool),
	}, nil
}

// Load fetches both collections concurrently and replaces the mirrors
// wholesale. Transient network failures are retried per the backoff policy;
// failures carrying a server verdict surface immediately. IsLoaded reports
// true after the final attempt regardless of outcome so callers can render an
// error state instead of spinning forever.
func (s *Store) Load(ctx context.Context) error {
	s.setError(nil)

	var apps []rest.App
	var feedbacks []rest.Feedback

	err := rest.Retry(ctx, s.backoff, rest.IsTransient, func() error {
		fetchedApps, fetchedFeedbacks, fetchErr := s.fetchBoth(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		apps = fetchedApps
		feedbacks = fetchedFeedbacks
		return nil
	})

	s.mu.Lock()
	s.isLoaded = true
	if err == nil {
		s.apps = apps
		s.feedbacks = feedbacks
		s.lastErr = nil
	} else {
		s.lastErr = err
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("initial load failed", zap.Error(err))
		return fmt.Errorf("store: load: %w", err)
	}
	return nil
}

func (s *Store) fetchBoth(ctx context.Context) ([]rest.App, []rest.Feedback, error) {
	var (
		wg          sync.WaitGroup
		apps        []rest.App
		feedbacks   []rest.Feedback
		appsErr     error
		feedbackErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		apps, appsErr = s.client.ListApps(ctx, rest.AppsQuery{})
	}()
	go func() {
		defer wg.Done()
		feedbacks, feedbackErr = s.client.ListFeedback(ctx, rest.FeedbackQuery{})
	}()
	wg.Wait()

	if appsErr != nil {
		return nil, nil, appsErr
	}
	if feedbackErr != nil {
		return nil, nil, feedbackErr
	}
	return apps, feedbacks, nil
}

// AddApp submits a draft and prepends the server's record to the mirror. The
// mirror is untouched on failure.
func (s *Store) AddApp(ctx context.Context, draft rest.AppDraft) (rest.App, error) {
	const operationKey = "addApp"
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	record, err := s.client.CreateApp(ctx, draft)
	if err != nil {
		s.setError(err)
		return rest.App{}, fmt.Errorf("store: add app: %w", err)
	}

	s.mu.Lock()
	s.apps = append([]rest.App{record}, s.apps...)
	s.mu.Unlock()

	return record, nil
}

// UpdateApp submits a partial patch and replaces the mirror entry with the
// server's merged record.
func (s *Store) UpdateApp(ctx context.Context, id string, patch rest.AppPatch) (rest.App, error) {
	operationKey := "updateApp-" + id
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	record, err := s.client.UpdateApp(ctx, id, patch)
	if err != nil {
		s.setError(err)
		return rest.App{}, fmt.Errorf("store: update app: %w", err)
	}

	s.mu.Lock()
	for i := range s.apps {
		if s.apps[i].ID == id {
			s.apps[i] = record
			break
		}
	}
	s.mu.Unlock()

	return record, nil
}

// DeleteApp removes the record remotely and drops it from the mirror on
// success. Cached feedback referencing the app is left alone; cascade is not
// the mirror's business.
func (s *Store) DeleteApp(ctx context.Context, id string) error {
	operationKey := "deleteApp-" + id
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	if err := s.client.DeleteApp(ctx, id); err != nil {
		s.setError(err)
		return fmt.Errorf("store: delete app: %w", err)
	}

	s.mu.Lock()
	kept := s.apps[:0]
	for _, record := range s.apps {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	s.apps = kept
	s.mu.Unlock()

	return nil
}

// AddFeedback submits a draft and prepends the server's record to the mirror.
func (s *Store) AddFeedback(ctx context.Context, draft rest.FeedbackDraft) (rest.Feedback, error) {
	const operationKey = "addFeedback"
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	record, err := s.client.CreateFeedback(ctx, draft)
	if err != nil {
		s.setError(err)
		return rest.Feedback{}, fmt.Errorf("store: add feedback: %w", err)
	}

	s.mu.Lock()
	s.feedbacks = append([]rest.Feedback{record}, s.feedbacks...)
	s.mu.Unlock()

	return record, nil
}

// UpdateFeedback submits a partial patch and replaces the mirror entry with
// the server's merged record.
func (s *Store) UpdateFeedback(ctx context.Context, id string, patch rest.FeedbackPatch) (rest.Feedback, error) {
	operationKey := "updateFeedback-" + id
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	record, err := s.client.UpdateFeedback(ctx, id, patch)
	if err != nil {
		s.setError(err)
		return rest.Feedback{}, fmt.Errorf("store: update feedback: %w", err)
	}

	s.replaceFeedback(record)
	return record, nil
}

// VoteFeedback applies the one optimistic mutation in the store: the local
// vote count moves up immediately, then the server call settles the record.
// On success the mirror takes the server's authoritative count. On failure
// the rollback decrements from the mirror's current value, floored at zero.
// It must not restore a captured snapshot: a concurrent vote may have landed
// between the optimistic bump and the failure, and its result has to survive.
func (s *Store) VoteFeedback(ctx context.Context, id string) (rest.Feedback, error) {
	operationKey := "voteFeedback-" + id
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	s.adjustVotes(id, 1)

	record, err := s.client.VoteFeedback(ctx, id, 1)
	if err != nil {
		s.adjustVotes(id, -1)
		s.setError(err)
		return rest.Feedback{}, fmt.Errorf("store: vote feedback: %w", err)
	}

	s.replaceFeedback(record)
	return record, nil
}

// DeleteFeedback removes the record remotely and drops it from the mirror on
// success.
func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	operationKey := "deleteFeedback-" + id
	s.setLoading(operationKey, true)
	defer s.setLoading(operationKey, false)
	s.setError(nil)

	if err := s.client.DeleteFeedback(ctx, id); err != nil {
		s.setError(err)
		return fmt.Errorf("store: delete feedback: %w", err)
	}

	s.mu.Lock()
	kept := s.feedbacks[:0]
	for _, record := range s.feedbacks {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	s.feedbacks = kept
	s.mu.Unlock()

	return nil
}

// RefreshApps re-fetches the app collection and replaces the mirror
// wholesale. Failures set the store error without disturbing the mirror.
func (s *Store) RefreshApps(ctx context.Context) error {
	s.setError(nil)

	records, err := s.client.ListApps(ctx, rest.AppsQuery{})
	if err != nil {
		s.setError(err)
		return fmt.Errorf("store: refresh apps: %w", err)
	}

	s.mu.Lock()
	s.apps = records
	s.mu.Unlock()

	return nil
}

// RefreshFeedbacks re-fetches feedback. With an empty appID the mirror is
// replaced wholesale. With an appID only rows for that app reconcile: fetched
// rows replace or join the mirror, rows the server no longer has are dropped,
// and every other app's cached rows stay untouched.
func (s *Store) RefreshFeedbacks(ctx context.Context, appID string) error {
	s.setError(nil)

	records, err := s.client.ListFeedback(ctx, rest.FeedbackQuery{AppID: appID})
	if err != nil {
		s.setError(err)
		return fmt.Errorf("store: refresh feedbacks: %w", err)
	}

	s.mu.Lock()
	if appID == "" {
		s.feedbacks = records
	} else {
		s.feedbacks = mergeFeedbackRows(s.feedbacks, records, appID)
	}
	s.mu.Unlock()

	return nil
}

// mergeFeedbackRows reconciles the rows belonging to appID against the
// fetched set while preserving the position of everything else.
func mergeFeedbackRows(existing, fetched []rest.Feedback, appID string) []rest.Feedback {
	byID := make(map[string]rest.Feedback, len(fetched))
	for _, record := range fetched {
		byID[record.ID] = record
	}

	merged := make([]rest.Feedback, 0, len(existing)+len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, record := range existing {
		if record.AppID != appID {
			merged = append(merged, record)
			continue
		}
		if replacement, ok := byID[record.ID]; ok {
			merged = append(merged, replacement)
			seen[record.ID] = true
		}
		// Rows the server no longer returns fall out of the mirror.
	}

	var added []rest.Feedback
	for _, record := range fetched {
		if !seen[record.ID] {
			added = append(added, record)
		}
	}
	if len(added) > 0 {
		merged = append(added, merged...)
	}
	return merged
}

// Apps returns a copy of the app mirror, newest first.
func (s *Store) Apps() []rest.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rest.App(nil), s.apps...)
}

// Feedbacks returns a copy of the feedback mirror.
func (s *Store) Feedbacks() []rest.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rest.Feedback(nil), s.feedbacks...)
}

// GetApp looks up an app in the mirror by identifier.
func (s *Store) GetApp(id string) (rest.App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.apps {
		if record.ID == id {
			return record, true
		}
	}
	return rest.App{}, false
}

// GetAppFeedbacks returns the mirrored feedback rows for one app.
func (s *Store) GetAppFeedbacks(appID string) []rest.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []rest.Feedback
	for _, record := range s.feedbacks {
		if record.AppID == appID {
			rows = append(rows, record)
		}
	}
	return rows
}

// IsLoaded reports whether the first load attempt has terminated, success or
// failure.
func (s *Store) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoaded
}

// Err returns the most recent operation failure, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// IsLoading reports whether the operation behind the given key is in flight,
// e.g. "addApp", "updateApp-<id>", "voteFeedback-<id>".
func (s *Store) IsLoading(operationKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingStates[operationKey]
}

func (s *Store) setLoading(operationKey string, inFlight bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inFlight {
		s.loadingStates[operationKey] = true
	} else {
		delete(s.loadingStates, operationKey)
	}
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *Store) adjustVotes(id string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feedbacks {
		if s.feedbacks[i].ID == id {
			s.feedbacks[i].Votes += delta
			if s.feedbacks[i].Votes < 0 {
				s.feedbacks[i].Votes = 0
			}
			return
		}
	}
}

func (s *Store) replaceFeedback(record rest.Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feedbacks {
		if s.feedbacks[i].ID == record.ID {
			s.feedbacks[i] = record
			return
		}
	}
}
