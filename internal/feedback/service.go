package feedback

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
	errMissingAppChecker = errors.New("app checker is required")
	noOpLogger           = zap.NewNop()

	// ErrFeedbackNotFound indicates that no feedback matches the requested identifier.
	ErrFeedbackNotFound = errors.New("feedback: feedback not found")
	// ErrAppNotFound indicates that the referenced application does not exist.
	ErrAppNotFound = errors.New("feedback: referenced app not found")
	// ErrDuplicateID indicates that feedback with the requested identifier already exists.
	ErrDuplicateID = errors.New("feedback: duplicate feedback id")
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
	opServiceNew = "feedback.service.new"
	opList       = "feedback.list"
	opGet        = "feedback.get"
	opCreate     = "feedback.create"
	opUpdate     = "feedback.update"
	opVote       = "feedback.vote"
	opDelete     = "feedback.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for records created without a client id.
type IDProvider interface {
	NewID() (string, error)
}

// AppChecker answers whether an application identifier resolves to a stored app.
type AppChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ServiceConfig describes the dependencies for the feedback service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	AppChecker AppChecker
	Logger     *zap.Logger
}

// Service owns persistence, validation, and vote accounting for feedback.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	appChecker AppChecker
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
	if cfg.AppChecker == nil {
		return nil, newServiceError(opServiceNew, "missing_app_checker", errMissingAppChecker)
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
		appChecker: cfg.AppChecker,
		logger:     logger,
	}, nil
}

// List returns feedback newest first, narrowed by the optional query.
func (s *Service) List(ctx context.Context, query Query) ([]Feedback, error) {
	tx := s.db.WithContext(ctx).Model(&Feedback{})
	if strings.TrimSpace(query.AppID) != "" {
		tx = tx.Where("app_id = ?", strings.TrimSpace(query.AppID))
	}
	if query.Status != "" {
		tx = tx.Where("status = ?", string(query.Status))
	}
	if query.Type != "" {
		tx = tx.Where("type = ?", string(query.Type))
	}

	var records []Feedback
	if err := tx.Order("created_at_ms DESC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Get returns the feedback record with the given identifier.
func (s *Service) Get(ctx context.Context, id FeedbackID) (Feedback, error) {
	var record Feedback
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Feedback{}, newServiceError(opGet, "not_found", ErrFeedbackNotFound)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("feedback_id", id.String()))
		return Feedback{}, newServiceError(opGet, "query_failed", err)
	}
	return record, nil
}

// Create validates the draft, verifies the referenced app exists, fills
// defaults (id, timestamp, zero votes, OPEN status, anonymous author), and
// persists the record.
func (s *Service) Create(ctx context.Context, draft Draft) (Feedback, error) {
	if err := validateDraft(draft); err != nil {
		return Feedback{}, newServiceError(opCreate, "invalid_draft", err)
	}

	exists, err := s.appChecker.Exists(ctx, strings.TrimSpace(draft.AppID))
	if err != nil {
		s.logError(opCreate, "app_check_failed", err, zap.String("app_id", draft.AppID))
		return Feedback{}, newServiceError(opCreate, "app_check_failed", err)
	}
	if !exists {
		return Feedback{}, newServiceError(opCreate, "app_not_found", ErrAppNotFound)
	}

	id := strings.TrimSpace(draft.ID)
	if id == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return Feedback{}, newServiceError(opCreate, "id_generation_failed", err)
		}
		id = generated
	}

	createdAt := draft.CreatedAtMs
	if createdAt == 0 {
		createdAt = s.clock().UnixMilli()
	}

	status := draft.Status
	if status == "" {
		status = StatusOpen
	}

	author := strings.TrimSpace(draft.Author)
	if author == "" {
		author = DefaultAuthor
	}

	votes := draft.Votes
	if votes < 0 {
		votes = 0
	}

	record := Feedback{
		ID:          id,
		AppID:       strings.TrimSpace(draft.AppID),
		Type:        draft.Type,
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		CreatedAtMs: createdAt,
		Votes:       votes,
		Status:      status,
		Author:      author,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Feedback
		err := tx.Where("id = ?", record.ID).Take(&existing).Error
		if err == nil {
			return newServiceError(opCreate, "duplicate_id", ErrDuplicateID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opCreate, "select_failed", err, zap.String("feedback_id", record.ID))
			return newServiceError(opCreate, "select_failed", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			s.logError(opCreate, "insert_failed", err, zap.String("feedback_id", record.ID))
			return newServiceError(opCreate, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Feedback{}, txErr
	}

	return record, nil
}

// Update applies a partial patch; nil fields preserve stored values.
func (s *Service) Update(ctx context.Context, id FeedbackID, patch Patch) (Feedback, error) {
	if patch.Type != nil {
		if _, err := ParseType(string(*patch.Type)); err != nil {
			return Feedback{}, newServiceError(opUpdate, "invalid_type", err)
		}
	}
	if patch.Status != nil {
		if _, err := ParseStatus(string(*patch.Status)); err != nil {
			return Feedback{}, newServiceError(opUpdate, "invalid_status", err)
		}
	}

	var record Feedback
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id.String()).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdate, "not_found", ErrFeedbackNotFound)
		}
		if err != nil {
			s.logError(opUpdate, "select_failed", err, zap.String("feedback_id", id.String()))
			return newServiceError(opUpdate, "select_failed", err)
		}

		if patch.Type != nil {
			record.Type = *patch.Type
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
			record.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
			record.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Votes != nil && *patch.Votes >= 0 {
			record.Votes = *patch.Votes
		}
		if patch.Status != nil {
			record.Status = *patch.Status
		}

		if err := tx.Save(&record).Error; err != nil {
			s.logError(opUpdate, "save_failed", err, zap.String("feedback_id", id.String()))
			return newServiceError(opUpdate, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Feedback{}, txErr
	}

	return record, nil
}

// Vote adjusts the vote count by increment (default callers pass 1) against
// the stored value, never dropping below zero, and returns the authoritative
// record. The adjustment happens inside a row lock so concurrent votes on the
// same record serialize at the database.
func (s *Service) Vote(ctx context.Context, id FeedbackID, increment int64) (Feedback, error) {
	var record Feedback
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id.String()).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opVote, "not_found", ErrFeedbackNotFound)
		}
		if err != nil {
			s.logError(opVote, "select_failed", err, zap.String("feedback_id", id.String()))
			return newServiceError(opVote, "select_failed", err)
		}

		record.Votes += increment
		if record.Votes < 0 {
			record.Votes = 0
		}

		if err := tx.Save(&record).Error; err != nil {
			s.logError(opVote, "save_failed", err, zap.String("feedback_id", id.String()))
			return newServiceError(opVote, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Feedback{}, txErr
	}

	return record, nil
}

// Delete removes the feedback record.
func (s *Service) Delete(ctx context.Context, id FeedbackID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&Feedback{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("feedback_id", id.String()))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, "not_found", ErrFeedbackNotFound)
	}
	return nil
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
	s.logger.Error("feedback service error", attrs...)
}
