package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/advisorhq/lead-intake-platform/internal/fraud"
	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/internal/qualify"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

type fixedQualifier struct {
	result qualify.Result
	calls  int
}

func (q *fixedQualifier) Qualify(ctx context.Context, message string) qualify.Result {
	q.calls++
	return q.result
}

type recordingNotifier struct {
	notified []*leads.Lead
	sent     bool
}

func (n *recordingNotifier) Notify(ctx context.Context, lead *leads.Lead) bool {
	n.notified = append(n.notified, lead)
	return n.sent
}

type recordingInvalidator struct {
	calls int
}

func (i *recordingInvalidator) Invalidate(ctx context.Context) {
	i.calls++
}

type failingRepository struct{}

func (failingRepository) Create(context.Context, *leads.CreateLeadRequest, qualify.Result, fraud.Result) (*leads.Lead, error) {
	return nil, errors.New("connection refused")
}
func (failingRepository) GetByID(context.Context, string) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}
func (failingRepository) List(context.Context, leads.Filter) ([]*leads.Lead, error) {
	return nil, nil
}
func (failingRepository) Update(context.Context, string, *leads.UpdateLeadRequest) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}
func (failingRepository) Stats(context.Context) (*leads.Stats, error) {
	return &leads.Stats{}, nil
}

func validRequest() *leads.CreateLeadRequest {
	return &leads.CreateLeadRequest{
		Name:           "Priya Sharma",
		Email:          "priya@gmail.com",
		Phone:          "+91 98765 43210",
		InitialMessage: "I want to invest 25L over the next quarter",
		Source:         "web",
	}
}

func hotResult() qualify.Result {
	return qualify.Result{Goal: "investment", Timeline: "1-3_months", BudgetRange: "20-50L", QualityScore: 82}
}

func coldResult() qualify.Result {
	return qualify.Result{Goal: "unclear", Timeline: "unclear", BudgetRange: "not_disclosed", QualityScore: 25}
}

func TestSubmit_CreatesQualifiedLead(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	qualifier := &fixedQualifier{result: hotResult()}
	notifier := &recordingNotifier{sent: true}
	svc := New(repo, qualifier, notifier, nil, logging.Default(), nil)

	lead, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.ID == "" {
		t.Error("expected lead ID to be set")
	}
	if lead.Goal == nil || *lead.Goal != "investment" {
		t.Errorf("Goal = %v, want investment", lead.Goal)
	}
	if lead.QualityScore == nil || *lead.QualityScore != 82 {
		t.Errorf("QualityScore = %v, want 82", lead.QualityScore)
	}
	if lead.IsFraud {
		t.Error("persisted lead must not be fraud-flagged")
	}
	if lead.Status != leads.StatusNew {
		t.Errorf("Status = %q, want new", lead.Status)
	}
	if qualifier.calls != 1 {
		t.Errorf("qualifier called %d times, want 1", qualifier.calls)
	}
}

func TestSubmit_FraudRejectedBeforeQualification(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	qualifier := &fixedQualifier{result: hotResult()}
	notifier := &recordingNotifier{sent: true}
	svc := New(repo, qualifier, notifier, nil, logging.Default(), nil)

	req := validRequest()
	req.Name = "test"
	req.Email = "a@tempmail.com"
	req.Phone = "1111111111"
	req.InitialMessage = "hi hi hi hi" // long enough to pass validation, message check not needed

	_, err := svc.Submit(context.Background(), req)

	var fraudErr *leads.FraudRejectionError
	if !errors.As(err, &fraudErr) {
		t.Fatalf("expected FraudRejectionError, got %v", err)
	}
	for _, want := range []string{"Disposable email", "Generic name", "Repeated digits"} {
		found := false
		for _, s := range fraudErr.Signals {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing signal %q in %v", want, fraudErr.Signals)
		}
	}

	if qualifier.calls != 0 {
		t.Error("qualifier must not run for a fraud-rejected submission")
	}
	if len(notifier.notified) != 0 {
		t.Error("notifier must not run for a fraud-rejected submission")
	}
	stats, _ := repo.Stats(context.Background())
	if stats.Total != 0 {
		t.Errorf("no record may be created, Total = %d", stats.Total)
	}
}

func TestSubmit_HotLeadTriggersNotification(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	notifier := &recordingNotifier{sent: true}
	svc := New(repo, &fixedQualifier{result: hotResult()}, notifier, nil, logging.Default(), nil)

	lead, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.notified) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(notifier.notified))
	}
	if notifier.notified[0].ID != lead.ID {
		t.Error("notifier received a different lead")
	}
}

func TestSubmit_ColdLeadSkipsNotification(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	notifier := &recordingNotifier{sent: true}
	svc := New(repo, &fixedQualifier{result: coldResult()}, notifier, nil, logging.Default(), nil)

	if _, err := svc.Submit(context.Background(), validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.notified) != 0 {
		t.Errorf("notifier called %d times, want 0", len(notifier.notified))
	}
}

func TestSubmit_NotificationFailureDoesNotFailRequest(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	notifier := &recordingNotifier{sent: false}
	svc := New(repo, &fixedQualifier{result: hotResult()}, notifier, nil, logging.Default(), nil)

	lead, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead == nil {
		t.Fatal("expected the persisted lead despite notification failure")
	}

	found, err := repo.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("lead not persisted: %v", err)
	}
	if found.ID != lead.ID {
		t.Error("persisted lead mismatch")
	}
}

func TestSubmit_StorageFailureIsFatal(t *testing.T) {
	notifier := &recordingNotifier{sent: true}
	svc := New(failingRepository{}, &fixedQualifier{result: hotResult()}, notifier, nil, logging.Default(), nil)

	_, err := svc.Submit(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected storage error")
	}
	var fraudErr *leads.FraudRejectionError
	if errors.As(err, &fraudErr) {
		t.Error("storage failure must not surface as fraud rejection")
	}
	if len(notifier.notified) != 0 {
		t.Error("notifier must not run after a storage failure")
	}
}

func TestSubmit_InvalidatesStatsCacheOnCreate(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	cache := &recordingInvalidator{}
	svc := New(repo, &fixedQualifier{result: coldResult()}, &recordingNotifier{}, cache, logging.Default(), nil)

	if _, err := svc.Submit(context.Background(), validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.calls != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.calls)
	}

	// Fraud rejection creates nothing and must not invalidate.
	req := validRequest()
	req.Email = "a@tempmail.com"
	req.InitialMessage = "hi"
	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatal("expected fraud rejection")
	}
	if cache.calls != 1 {
		t.Errorf("cache invalidated %d times after rejection, want still 1", cache.calls)
	}
}
