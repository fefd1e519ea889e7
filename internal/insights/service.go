package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingAppChecker = errors.New("app checker is required")
	noOpLogger           = zap.NewNop()

	// ErrInsightNotFound indicates that no insight matches the requested identifier.
	ErrInsightNotFound = errors.New("insights: insight not found")
	// ErrAppNotFound indicates that the referenced application does not exist.
	ErrAppNotFound = errors.New("insights: referenced app not found")
	// ErrDuplicateID indicates that an insight with the requested identifier already exists.
	ErrDuplicateID = errors.New("insights: duplicate insight id")
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

func (e *ServiceError) Unwrap() error { return e.err }

func (e *ServiceError) Code() string { return e.code }

const (
	opServiceNew = "insights.service.new"
	opList       = "insights.list"
	opGet        = "insights.get"
	opCreate     = "insights.create"
	opDelete     = "insights.delete"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

type IDProvider interface {
	NewID() (string, error)
}

type AppChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	AppChecker AppChecker
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	appChecker AppChecker
	logger     *zap.Logger
}

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

	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, appChecker: cfg.AppChecker, logger: logger}, nil
}

// List returns stored insights newest first, optionally narrowed to one app.
func (s *Service) List(ctx context.Context, appID string) ([]Insight, error) {
	tx := s.db.WithContext(ctx).Model(&Insight{})
	if strings.TrimSpace(appID) != "" {
		tx = tx.Where("app_id = ?", strings.TrimSpace(appID))
	}

	var records []Insight
	if err := tx.Order("created_at_ms DESC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, id string) (Insight, error) {
	var record Insight
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Insight{}, newServiceError(opGet, "not_found", ErrInsightNotFound)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("insight_id", id))
		return Insight{}, newServiceError(opGet, "query_failed", err)
	}
	return record, nil
}

func (s *Service) Create(ctx context.Context, draft Draft) (Insight, error) {
	if err := validateDraft(draft); err != nil {
		return Insight{}, newServiceError(opCreate, "invalid_draft", err)
	}

	exists, err := s.appChecker.Exists(ctx, strings.TrimSpace(draft.AppID))
	if err != nil {
		s.logError(opCreate, "app_check_failed", err, zap.String("app_id", draft.AppID))
		return Insight{}, newServiceError(opCreate, "app_check_failed", err)
	}
	if !exists {
		return Insight{}, newServiceError(opCreate, "app_not_found", ErrAppNotFound)
	}

	id := strings.TrimSpace(draft.ID)
	if id == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return Insight{}, newServiceError(opCreate, "id_generation_failed", err)
		}
		id = generated
	}

	now := s.clock().UnixMilli()
	record := Insight{
		ID:                  id,
		AppID:               strings.TrimSpace(draft.AppID),
		Summary:             strings.TrimSpace(draft.Summary),
		Suggestions:         StringList(draft.Suggestions),
		TechnicalChallenges: StringList(draft.TechnicalChallenges),
		CreatedAtMs:         now,
		UpdatedAtMs:         now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Insight
		err := tx.Where("id = ?", record.ID).Take(&existing).Error
		if err == nil {
			return newServiceError(opCreate, "duplicate_id", ErrDuplicateID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opCreate, "select_failed", err, zap.String("insight_id", record.ID))
			return newServiceError(opCreate, "select_failed", err)
		}
		if err := tx.Create(&record).Error; err != nil {
			s.logError(opCreate, "insert_failed", err, zap.String("insight_id", record.ID))
			return newServiceError(opCreate, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Insight{}, txErr
	}

	return record, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Insight{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("insight_id", id))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, "not_found", ErrInsightNotFound)
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
	s.logger.Error("insights service error", attrs...)
}
