package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/advisorhq/lead-intake-platform/internal/fraud"
	"github.com/advisorhq/lead-intake-platform/internal/qualify"
)

// Repository defines the interface for lead storage.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest, qual qualify.Result, check fraud.Result) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter Filter) ([]*Lead, error)
	Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error)
	Stats(ctx context.Context) (*Stats, error)
}

// StatsProvider is the read side the stats endpoint needs; satisfied by
// Repository and by the cache wrapping it.
type StatsProvider interface {
	Stats(ctx context.Context) (*Stats, error)
}

// InMemoryRepository is an in-memory Repository used by handler and
// pipeline tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a new lead merging input, qualification and fraud fields.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest, qual qualify.Result, check fraud.Result) (*Lead, error) {
	goal := qual.Goal
	timeline := qual.Timeline
	budget := qual.BudgetRange
	score := qual.QualityScore

	lead := &Lead{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		InitialMessage: req.InitialMessage,
		Source:         req.Source,
		IPAddress:      req.IPAddress,
		Goal:           &goal,
		Timeline:       &timeline,
		BudgetRange:    &budget,
		QualityScore:   &score,
		IsFraud:        check.IsFraud,
		FraudSignals:   append([]string(nil), check.Signals...),
		Status:         StatusNew,
		CreatedAt:      time.Now().UTC(),
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	return copyLead(lead), nil
}

// List returns leads newest-created first, honoring the filter.
func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]*Lead, error) {
	r.mu.RLock()
	var matched []*Lead
	for _, lead := range r.leads {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if filter.MinScore != nil && (lead.QualityScore == nil || *lead.QualityScore < *filter.MinScore) {
			continue
		}
		if filter.MaxScore != nil && (lead.QualityScore == nil || *lead.QualityScore > *filter.MaxScore) {
			continue
		}
		matched = append(matched, copyLead(lead))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Update mutates status and/or assignee. An empty patch reads the lead
// back untouched, same as the Postgres implementation.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Status == nil && req.AssignedTo == nil {
		return r.GetByID(ctx, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	if req.Status != nil {
		lead.Status = *req.Status
	}
	if req.AssignedTo != nil {
		assignee := *req.AssignedTo
		lead.AssignedTo = &assignee
	}
	now := time.Now().UTC()
	lead.UpdatedAt = &now

	return copyLead(lead), nil
}

// Stats aggregates dashboard counts.
func (r *InMemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	for _, lead := range r.leads {
		stats.Total++
		if lead.QualityScore != nil {
			switch {
			case *lead.QualityScore >= 70:
				stats.Hot++
			case *lead.QualityScore >= 40:
				stats.Warm++
			default:
				stats.Cold++
			}
		}
		if lead.IsFraud {
			stats.Fraud++
		}
	}
	return stats, nil
}

func copyLead(lead *Lead) *Lead {
	clone := *lead
	if lead.Goal != nil {
		v := *lead.Goal
		clone.Goal = &v
	}
	if lead.Timeline != nil {
		v := *lead.Timeline
		clone.Timeline = &v
	}
	if lead.BudgetRange != nil {
		v := *lead.BudgetRange
		clone.BudgetRange = &v
	}
	if lead.QualityScore != nil {
		v := *lead.QualityScore
		clone.QualityScore = &v
	}
	if lead.AssignedTo != nil {
		v := *lead.AssignedTo
		clone.AssignedTo = &v
	}
	if lead.UpdatedAt != nil {
		v := *lead.UpdatedAt
		clone.UpdatedAt = &v
	}
	clone.FraudSignals = append([]string(nil), lead.FraudSignals...)
	return &clone
}
