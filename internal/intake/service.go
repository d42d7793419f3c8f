// Package intake orchestrates the lead pipeline: fraud screening,
// AI qualification, persistence and hot-lead notification, in that
// strict order with no compensation steps.
package intake

import (
	"context"
	"fmt"

	"github.com/advisorhq/lead-intake-platform/internal/fraud"
	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/internal/notify"
	"github.com/advisorhq/lead-intake-platform/internal/observability/metrics"
	"github.com/advisorhq/lead-intake-platform/internal/qualify"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

// Qualifier scores a lead message; it must degrade internally and never
// fail.
type Qualifier interface {
	Qualify(ctx context.Context, message string) qualify.Result
}

// Notifier dispatches a hot-lead notification; failures are absorbed and
// reported as sent=false.
type Notifier interface {
	Notify(ctx context.Context, lead *leads.Lead) bool
}

// StatsInvalidator drops cached dashboard stats after a create.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service is the lead intake pipeline.
type Service struct {
	repo      leads.Repository
	qualifier Qualifier
	notifier  Notifier
	cache     StatsInvalidator
	logger    *logging.Logger
	metrics   *metrics.LeadMetrics
}

// New wires the pipeline. cache and m may be nil.
func New(repo leads.Repository, qualifier Qualifier, notifier Notifier, cache StatsInvalidator, logger *logging.Logger, m *metrics.LeadMetrics) *Service {
	if repo == nil {
		panic("intake: repository required")
	}
	if qualifier == nil {
		panic("intake: qualifier required")
	}
	if notifier == nil {
		panic("intake: notifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		qualifier: qualifier,
		notifier:  notifier,
		cache:     cache,
		logger:    logger,
		metrics:   m,
	}
}

// Submit processes one validated submission end to end and returns the
// persisted lead. Terminal on first failure: a fraud verdict rejects the
// submission before anything is stored, and a storage failure surfaces
// as an error. Qualifier and notification faults never fail the request.
func (s *Service) Submit(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Lead, error) {
	check := fraud.Screen(req.Name, req.Email, req.Phone, req.InitialMessage)
	if check.IsFraud {
		s.logger.Info("submission rejected as fraud", "email", req.Email, "signals", check.Signals)
		s.metrics.ObserveSubmission("fraud_rejected")
		return nil, &leads.FraudRejectionError{Signals: check.Signals}
	}

	qual := s.qualifier.Qualify(ctx, req.InitialMessage)

	lead, err := s.repo.Create(ctx, req, qual, check)
	if err != nil {
		s.metrics.ObserveSubmission("storage_error")
		return nil, fmt.Errorf("intake: persist lead: %w", err)
	}
	s.metrics.ObserveSubmission("created")
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	// Already durably created; notification is best-effort from here on.
	if qual.QualityScore >= notify.HotLeadThreshold {
		if s.notifier.Notify(ctx, lead) {
			s.metrics.ObserveNotification("sent")
		} else {
			s.metrics.ObserveNotification("failed")
			s.logger.Warn("hot lead notification not delivered", "lead_id", lead.ID)
		}
	} else {
		s.metrics.ObserveNotification("skipped")
	}

	return lead, nil
}
