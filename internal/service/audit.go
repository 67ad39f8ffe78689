package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// AuditRepository defines the interface for audit log storage
type AuditRepository interface {
	Create(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.AuditEntry], error)
}

// Auditor records privileged changes
type Auditor interface {
	Record(ctx context.Context, actorID, action, resourceType, resourceID string, detail map[string]interface{})
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address for audit entries
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) *string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return &ip
	}
	return nil
}

// AuditService writes and reads the admin audit log
type AuditService struct {
	repo   AuditRepository
	schema *filter.Schema
	logger *slog.Logger
}

// AuditServiceConfig holds configuration for the audit service
type AuditServiceConfig struct {
	Repo   AuditRepository
	Filter *filter.Schema
	Logger *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(cfg AuditServiceConfig) *AuditService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuditService{repo: cfg.Repo, schema: cfg.Filter, logger: cfg.Logger}
}

// Record appends an entry. Failures are logged and never returned, so an
// admin change is not undone by a failed audit write.
func (s *AuditService) Record(ctx context.Context, actorID, action, resourceType, resourceID string, detail map[string]interface{}) {
	entry := &model.AuditEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
		IP:           clientIP(ctx),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("actor_id", actorID),
			slog.String("error", err.Error()),
		)
	}
}

// List returns entries matching an AIP-160 filter, newest first
func (s *AuditService) List(ctx context.Context, q model.ListQuery) (*model.Page[*model.AuditEntry], error) {
	cond, err := parseFilter(s.schema, q.Filter)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond, q.PageRequest)
}

// parseFilter maps filter parse failures onto ErrInvalidFilter
func parseFilter(schema *filter.Schema, expr string) (filter.Condition, error) {
	if schema == nil {
		if expr != "" {
			return filter.Condition{}, fmt.Errorf("%w: filtering is not supported here", ErrInvalidFilter)
		}
		return filter.Condition{}, nil
	}
	cond, err := schema.Parse(expr)
	if err != nil {
		if errors.Is(err, filter.ErrInvalidFilter) {
			return filter.Condition{}, fmt.Errorf("%w: %s", ErrInvalidFilter, strings.TrimPrefix(err.Error(), filter.ErrInvalidFilter.Error()+": "))
		}
		return filter.Condition{}, err
	}
	return cond, nil
}

// noopAuditor is used when a service is built without an auditor
type noopAuditor struct{}

func (noopAuditor) Record(context.Context, string, string, string, string, map[string]interface{}) {}
