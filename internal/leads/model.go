package leads

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/badoux/checkmail"
)

// Lead statuses a record moves through after creation.
const (
	StatusNew           = "new"
	StatusAssigned      = "assigned"
	StatusContacted     = "contacted"
	StatusMeetingBooked = "meeting_booked"
	StatusClosed        = "closed"
	StatusLost          = "lost"
)

var validStatuses = map[string]struct{}{
	StatusNew:           {},
	StatusAssigned:      {},
	StatusContacted:     {},
	StatusMeetingBooked: {},
	StatusClosed:        {},
	StatusLost:          {},
}

// ValidStatus reports whether s is a known lead status.
func ValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

// Lead is a prospective customer's submission annotated with the
// AI-derived qualification. Qualification fields are nullable until
// qualification completes.
type Lead struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	InitialMessage string     `json:"initial_message"`
	Source         string     `json:"source"`
	IPAddress      string     `json:"ip_address,omitempty"`
	Goal           *string    `json:"goal"`
	Timeline       *string    `json:"timeline"`
	BudgetRange    *string    `json:"budget_range"`
	QualityScore   *int       `json:"quality_score"`
	IsFraud        bool       `json:"is_fraud"`
	FraudSignals   []string   `json:"fraud_signals,omitempty"`
	Status         string     `json:"status"`
	AssignedTo     *string    `json:"assigned_to"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// CreateLeadRequest is the request body for creating a lead.
type CreateLeadRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	InitialMessage string `json:"initial_message"`
	Source         string `json:"source"`
	IPAddress      string `json:"-"`
}

// Validate checks field shape before anything else runs; this is the
// only gate ahead of fraud screening.
func (r *CreateLeadRequest) Validate() error {
	// Length limits count characters so non-ASCII input is measured the
	// same as Latin script.
	if utf8.RuneCountInString(strings.TrimSpace(r.Name)) < 2 {
		return ErrInvalidName
	}
	if err := checkmail.ValidateFormat(r.Email); err != nil {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(r.Phone) < 10 {
		return ErrInvalidPhone
	}
	if utf8.RuneCountInString(r.InitialMessage) < 10 {
		return ErrInvalidMessage
	}
	if r.Source == "" {
		r.Source = "web"
	}
	return nil
}

// UpdateLeadRequest carries the only two fields that are mutable after
// creation.
type UpdateLeadRequest struct {
	Status     *string `json:"status"`
	AssignedTo *string `json:"assigned_to"`
}

// Validate rejects unknown status values.
func (r *UpdateLeadRequest) Validate() error {
	if r.Status != nil && !ValidStatus(*r.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Status   string
	MinScore *int
	MaxScore *int
	Limit    int
	Offset   int
}

// Stats are the aggregate counts the dashboard displays. Fraud-flagged
// submissions are rejected before persistence, so Fraud stays zero in a
// correct deployment; the column is kept as a forward-compatible hook.
type Stats struct {
	Total int64 `json:"total"`
	Hot   int64 `json:"hot"`
	Warm  int64 `json:"warm"`
	Cold  int64 `json:"cold"`
	Fraud int64 `json:"fraud"`
}
