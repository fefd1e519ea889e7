package apps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrAppNotFound indicates that no application matches the requested identifier.
	ErrAppNotFound = errors.New("apps: app not found")
	// ErrDuplicateID indicates that an application with the requested identifier already exists.
	ErrDuplicateID = errors.New("apps: duplicate app id")
)

// ServiceError pairs a stable operation.reason code with its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "apps.service.new"
	opList       = "apps.list"
	opGet        = "apps.get"
	opCreate     = "apps.create"
	opUpdate     = "apps.update"
	opDelete     = "apps.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for records created without a client id.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the application catalog service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns persistence and validation for application records.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns applications newest first, narrowed by the optional query.
// Tech-stack intersection is evaluated in memory because the stack persists
// as a JSON text column portable across Postgres and SQLite.
func (s *Service) List(ctx context.Context, query Query) ([]App, error) {
	tx := s.db.WithContext(ctx).Model(&App{})

	search := strings.TrimSpace(query.Search)
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var records []App
	if err := tx.Order("created_at_ms DESC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}

	if len(query.TechStack) == 0 {
		return records, nil
	}

	filtered := make([]App, 0, len(records))
	for _, record := range records {
		if record.TechStack.Intersects(query.TechStack) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// Get returns the application with the given identifier.
func (s *Service) Get(ctx context.Context, id AppID) (App, error) {
	var record App
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return App{}, newServiceError(opGet, "not_found", ErrAppNotFound)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("app_id", id.String()))
		return App{}, newServiceError(opGet, "query_failed", err)
	}
	return record, nil
}

// Exists reports whether an application with the given identifier is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&App{}).Where("id = ?", id).Count(&count).Error; err != nil {
		s.logError(opGet, "exists_query_failed", err, zap.String("app_id", id))
		return false, newServiceError(opGet, "query_failed", err)
	}
	return count > 0, nil
}

// Create validates the draft, assigns id and creation timestamp when absent,
// and persists the record. The stored record is returned as the authoritative
// copy.
func (s *Service) Create(ctx context.Context, draft Draft) (App, error) {
	if err := validateDraft(draft); err != nil {
		return App{}, newServiceError(opCreate, "invalid_draft", err)
	}

	id := strings.TrimSpace(draft.ID)
	if id == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return App{}, newServiceError(opCreate, "id_generation_failed", err)
		}
		id = generated
	}

	createdAt := draft.CreatedAtMs
	if createdAt == 0 {
		createdAt = s.clock().UnixMilli()
	}

	thumbnailURL, imageURL := normalizeImageURLs(draft.ThumbnailURL, draft.ImageURL)
	record := App{
		ID:           id,
		Name:         strings.TrimSpace(draft.Name),
		Description:  strings.TrimSpace(draft.Description),
		GithubURL:    draft.GithubURL,
		DemoURL:      draft.DemoURL,
		TechStack:    TechStackColumn(draft.TechStack),
		CreatedAtMs:  createdAt,
		ThumbnailURL: thumbnailURL,
		ImageURL:     imageURL,
		AIInsights:   draft.AIInsights,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing App
		err := tx.Where("id = ?", record.ID).Take(&existing).Error
		if err == nil {
			return newServiceError(opCreate, "duplicate_id", ErrDuplicateID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opCreate, "select_failed", err, zap.String("app_id", record.ID))
			return newServiceError(opCreate, "select_failed", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			s.logError(opCreate, "insert_failed", err, zap.String("app_id", record.ID))
			return newServiceError(opCreate, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return App{}, txErr
	}

	return record, nil
}

// Update applies a partial patch; nil fields preserve stored values. The
// merged record is returned as the authoritative copy.
func (s *Service) Update(ctx context.Context, id AppID, patch Patch) (App, error) {
	var record App
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id.String()).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdate, "not_found", ErrAppNotFound)
		}
		if err != nil {
			s.logError(opUpdate, "select_failed", err, zap.String("app_id", id.String()))
			return newServiceError(opUpdate, "select_failed", err)
		}

		applyPatch(&record, patch)

		if err := tx.Save(&record).Error; err != nil {
			s.logError(opUpdate, "save_failed", err, zap.String("app_id", id.String()))
			return newServiceError(opUpdate, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return App{}, txErr
	}

	return record, nil
}

// Delete removes the application record. Feedback referencing the app is
// intentionally left alone; cascade is the caller's business.
func (s *Service) Delete(ctx context.Context, id AppID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&App{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("app_id", id.String()))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, "not_found", ErrAppNotFound)
	}
	return nil
}

func applyPatch(record *App, patch Patch) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		record.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		record.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.GithubURL != nil {
		record.GithubURL = *patch.GithubURL
	}
	if patch.DemoURL != nil {
		record.DemoURL = *patch.DemoURL
	}
	if patch.TechStack != nil && len(*patch.TechStack) > 0 {
		record.TechStack = TechStackColumn(*patch.TechStack)
	}
	if patch.AIInsights != nil {
		record.AIInsights = *patch.AIInsights
	}

	// The legacy pair moves together: whichever side the patch carries wins
	// and both columns converge on it.
	switch {
	case patch.ImageURL != nil:
		record.ImageURL = *patch.ImageURL
		record.ThumbnailURL = *patch.ImageURL
	case patch.ThumbnailURL != nil:
		record.ImageURL = *patch.ThumbnailURL
		record.ThumbnailURL = *patch.ThumbnailURL
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("apps service error", attrs...)
}
