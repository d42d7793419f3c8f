// Package qualify turns a lead's free-text message into a structured
// qualification by prompting a text-generation backend and parsing its
// JSON reply. Backend failures never surface to callers: the qualifier
// degrades to a fixed neutral result so lead capture keeps working when
// the model is down.
package qualify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/advisorhq/lead-intake-platform/internal/observability/metrics"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

// Result is the structured qualification derived from a lead's message.
type Result struct {
	Goal         string `json:"goal"`
	Timeline     string `json:"timeline"`
	BudgetRange  string `json:"budget_range"`
	QualityScore int    `json:"quality_score"`
}

// Fallback is returned whenever the backend call fails, times out or the
// reply cannot be parsed.
func Fallback() Result {
	return Result{
		Goal:         "unclear",
		Timeline:     "unclear",
		BudgetRange:  "not_disclosed",
		QualityScore: 30,
	}
}

var validGoals = map[string]struct{}{
	"investment":        {},
	"retirement":        {},
	"insurance":         {},
	"tax":               {},
	"wealth_management": {},
	"unclear":           {},
}

var validTimelines = map[string]struct{}{
	"immediate":  {},
	"1-3_months": {},
	"6-12_months": {},
	"5+_years":   {},
	"unclear":    {},
}

var validBudgets = map[string]struct{}{
	"<5L":           {},
	"5-20L":         {},
	"20-50L":        {},
	"50L+":          {},
	"not_disclosed": {},
}

const promptTemplate = `You are a lead qualification assistant for a financial advisory service in India.

Analyze this lead's message and extract information. Respond with ONLY a JSON object:

{
  "goal": "investment | retirement | insurance | tax | wealth_management | unclear",
  "timeline": "immediate | 1-3_months | 6-12_months | 5+_years | unclear",
  "budget_range": "<5L | 5-20L | 20-50L | 50L+ | not_disclosed",
  "quality_score": <number 0-100>
}

Scoring guide:
- Budget: <5L=20pts, 5-20L=30pts, 20-50L=35pts, 50L+=40pts, not_disclosed=10pts
- Timeline: immediate=30pts, 1-3mo=25pts, 6-12mo=20pts, 5+yrs=15pts, unclear=5pts
- Message clarity: Clear=20pts, Vague=10pts, Very vague=5pts
- Completeness: All info=10pts, Partial=5pts, Minimal=0pts

Lead's message: "%s"

Return ONLY the JSON object.`

// Qualifier scores lead messages through a TextClient.
type Qualifier struct {
	client  TextClient
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.LeadMetrics
}

// New creates a qualifier. timeout bounds the backend call; zero means
// no additional deadline beyond the request context.
func New(client TextClient, timeout time.Duration, logger *logging.Logger, m *metrics.LeadMetrics) *Qualifier {
	if client == nil {
		panic("qualify: text client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Qualifier{
		client:  client,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Qualify scores a lead message. It never returns an error: on any
// backend or parse failure it returns Fallback(). Out-of-domain fields in
// an otherwise valid reply are substituted per-field and the score is
// clamped to [0,100].
func (q *Qualifier) Qualify(ctx context.Context, message string) Result {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("qualify").Start(ctx, "qualify.Qualify")
	defer span.End()

	prompt := fmt.Sprintf(promptTemplate, message)

	start := time.Now()
	raw, err := q.client.Generate(ctx, prompt)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		q.logger.Warn("qualifier backend call failed, using fallback", "error", err)
		q.metrics.ObserveQualifier("fallback", elapsed)
		span.SetAttributes(attribute.Bool("qualify.fallback", true))
		return Fallback()
	}

	result, err := parseReply(raw)
	if err != nil {
		q.logger.Warn("qualifier reply unparseable, using fallback", "error", err, "reply", truncate(raw, 200))
		q.metrics.ObserveQualifier("fallback", elapsed)
		span.SetAttributes(attribute.Bool("qualify.fallback", true))
		return Fallback()
	}

	q.metrics.ObserveQualifier("ok", elapsed)
	span.SetAttributes(attribute.Int("qualify.score", result.QualityScore))
	return result
}

// rawResult tolerates a float score so a reply like 85.0 still parses.
type rawResult struct {
	Goal         string   `json:"goal"`
	Timeline     string   `json:"timeline"`
	BudgetRange  string   `json:"budget_range"`
	QualityScore *float64 `json:"quality_score"`
}

func parseReply(raw string) (Result, error) {
	cleaned := stripCodeFences(raw)

	var parsed rawResult
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Result{}, fmt.Errorf("qualify: invalid JSON reply: %w", err)
	}

	fallback := Fallback()
	result := Result{
		Goal:        parsed.Goal,
		Timeline:    parsed.Timeline,
		BudgetRange: parsed.BudgetRange,
	}

	if _, ok := validGoals[result.Goal]; !ok {
		result.Goal = fallback.Goal
	}
	if _, ok := validTimelines[result.Timeline]; !ok {
		result.Timeline = fallback.Timeline
	}
	if _, ok := validBudgets[result.BudgetRange]; !ok {
		result.BudgetRange = fallback.BudgetRange
	}

	if parsed.QualityScore == nil {
		result.QualityScore = fallback.QualityScore
	} else {
		score := int(*parsed.QualityScore)
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		result.QualityScore = score
	}

	return result, nil
}

// stripCodeFences removes Markdown artifacts models wrap JSON in.
func stripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
