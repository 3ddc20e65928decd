// Package service contains the application services that compose the access
// guard, partition storage, risk engine, and audit sink into the operations
// exposed at the presentation boundary.
package service

import (
	"context"

	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	infraaudit "github.com/edusight/edusight/internal/infrastructure/audit"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// AuditSink records sensitive operations keyed by principal. For those
// operations the append must complete before the triggering operation's
// result is returned (write-before-respond); callers therefore invoke Record
// synchronously on their response path.
type AuditSink interface {
	// Record appends one audit entry and returns only once it is durable.
	Record(ctx context.Context, principal *models.Principal, action constants.AuditAction, resource, tenantTouched string) error

	// ListByPrincipal returns a principal's trail in insertion order.
	// An oversight principal may inspect any principal's trail; a tenant
	// admin only its own.
	ListByPrincipal(ctx context.Context, caller *models.Principal, targetPrincipalID string, page models.Page) (*dto.AuditListResponse, error)
}

type auditSinkImpl struct {
	repo    repository.AuditRepository
	signer  *infraaudit.Signer
	mirror  *infraaudit.KafkaMirror
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewAuditSink creates the sink. signer and mirror may be nil when disabled.
func NewAuditSink(
	repo repository.AuditRepository,
	signer *infraaudit.Signer,
	mirror *infraaudit.KafkaMirror,
	metrics *monitoring.Metrics,
	log logger.Logger,
) AuditSink {
	return &auditSinkImpl{
		repo:    repo,
		signer:  signer,
		mirror:  mirror,
		metrics: metrics,
		logger:  log.WithComponent("AuditSink"),
	}
}

func (s *auditSinkImpl) Record(ctx context.Context, principal *models.Principal, action constants.AuditAction, resource, tenantTouched string) error {
	record := models.NewAuditRecord(principal, action, resource, tenantTouched)

	if s.signer != nil {
		sig, err := s.signer.Sign(record)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "audit signing failed")
		}
		record.Signature = sig
	}

	if err := s.repo.Append(ctx, record); err != nil {
		s.metrics.RecordAuditWrite(string(action), "failure")
		return err
	}
	s.metrics.RecordAuditWrite(string(action), "success")

	if s.mirror != nil {
		// The mirror is best-effort and must not delay the response.
		go s.mirror.Publish(context.WithoutCancel(ctx), record)
	}
	return nil
}

func (s *auditSinkImpl) ListByPrincipal(ctx context.Context, caller *models.Principal, targetPrincipalID string, page models.Page) (*dto.AuditListResponse, error) {
	if targetPrincipalID == "" {
		targetPrincipalID = caller.PrincipalID
	}
	if targetPrincipalID != caller.PrincipalID && !caller.IsOversight() {
		return nil, errors.ErrAuthorization("")
	}

	page = page.Normalize()
	records, err := s.repo.ListByPrincipal(ctx, targetPrincipalID, page)
	if err != nil {
		return nil, err
	}
	return &dto.AuditListResponse{
		Records: records,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, nil
}
