package qualify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

type stubClient struct {
	reply string
	err   error
	delay time.Duration
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newQualifier(client TextClient, timeout time.Duration) *Qualifier {
	return New(client, timeout, logging.Default(), nil)
}

func TestQualify_ParsesWellFormedReply(t *testing.T) {
	client := &stubClient{reply: `{"goal":"retirement","timeline":"immediate","budget_range":"50L+","quality_score":92}`}
	q := newQualifier(client, 0)

	result := q.Qualify(context.Background(), "I want to retire in 2 years with 60L saved")

	if result.Goal != "retirement" {
		t.Errorf("Goal = %q, want retirement", result.Goal)
	}
	if result.Timeline != "immediate" {
		t.Errorf("Timeline = %q, want immediate", result.Timeline)
	}
	if result.BudgetRange != "50L+" {
		t.Errorf("BudgetRange = %q, want 50L+", result.BudgetRange)
	}
	if result.QualityScore != 92 {
		t.Errorf("QualityScore = %d, want 92", result.QualityScore)
	}
}

func TestQualify_StripsCodeFences(t *testing.T) {
	client := &stubClient{reply: "```json\n{\"goal\":\"investment\",\"timeline\":\"1-3_months\",\"budget_range\":\"5-20L\",\"quality_score\":75}\n```"}
	q := newQualifier(client, 0)

	result := q.Qualify(context.Background(), "10L to invest next quarter")

	if result.Goal != "investment" || result.QualityScore != 75 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestQualify_BackendErrorReturnsFallback(t *testing.T) {
	client := &stubClient{err: errors.New("quota exceeded")}
	q := newQualifier(client, 0)

	result := q.Qualify(context.Background(), "hello")

	if result != Fallback() {
		t.Errorf("result = %+v, want fallback", result)
	}
}

func TestQualify_NonJSONReplyReturnsFallback(t *testing.T) {
	client := &stubClient{reply: "I'm sorry, I cannot help with that."}
	q := newQualifier(client, 0)

	result := q.Qualify(context.Background(), "hello")

	if result != Fallback() {
		t.Errorf("result = %+v, want fallback", result)
	}
}

func TestQualify_TimeoutReturnsFallback(t *testing.T) {
	client := &stubClient{
		reply: `{"goal":"tax","timeline":"immediate","budget_range":"<5L","quality_score":60}`,
		delay: 200 * time.Millisecond,
	}
	q := newQualifier(client, 10*time.Millisecond)

	result := q.Qualify(context.Background(), "tax planning help")

	if result != Fallback() {
		t.Errorf("result = %+v, want fallback", result)
	}
}

func TestQualify_UnknownEnumValuesSubstitutedPerField(t *testing.T) {
	client := &stubClient{reply: `{"goal":"crypto","timeline":"immediate","budget_range":"millions","quality_score":55}`}
	q := newQualifier(client, 0)

	result := q.Qualify(context.Background(), "put my savings in crypto")

	if result.Goal != "unclear" {
		t.Errorf("Goal = %q, want unclear", result.Goal)
	}
	if result.Timeline != "immediate" {
		t.Errorf("Timeline = %q, want immediate (valid field kept)", result.Timeline)
	}
	if result.BudgetRange != "not_disclosed" {
		t.Errorf("BudgetRange = %q, want not_disclosed", result.BudgetRange)
	}
	if result.QualityScore != 55 {
		t.Errorf("QualityScore = %d, want 55", result.QualityScore)
	}
}

func TestQualify_ScoreClampedToRange(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"above range", `{"goal":"investment","timeline":"immediate","budget_range":"50L+","quality_score":150}`, 100},
		{"below range", `{"goal":"investment","timeline":"immediate","budget_range":"50L+","quality_score":-5}`, 0},
		{"float score", `{"goal":"investment","timeline":"immediate","budget_range":"50L+","quality_score":85.0}`, 85},
		{"missing score", `{"goal":"investment","timeline":"immediate","budget_range":"50L+"}`, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQualifier(&stubClient{reply: tt.reply}, 0)
			result := q.Qualify(context.Background(), "msg")
			if result.QualityScore != tt.want {
				t.Errorf("QualityScore = %d, want %d", result.QualityScore, tt.want)
			}
		})
	}
}

func TestQualify_PromptEmbedsMessage(t *testing.T) {
	var captured string
	client := captureClient{captured: &captured}
	q := New(client, 0, logging.Default(), nil)

	q.Qualify(context.Background(), "I have 25L for wealth management")

	if captured == "" {
		t.Fatal("prompt was never sent")
	}
	if want := `Lead's message: "I have 25L for wealth management"`; !strings.Contains(captured, want) {
		t.Errorf("prompt missing %q", want)
	}
	if !strings.Contains(captured, "Return ONLY the JSON object.") {
		t.Error("prompt missing JSON-only instruction")
	}
}

type captureClient struct {
	captured *string
}

func (c captureClient) Generate(ctx context.Context, prompt string) (string, error) {
	*c.captured = prompt
	return "", errors.New("capture only")
}
