// Package notify delivers hot-lead email alerts to staff. Delivery is
// best-effort: failures are logged and reported as not-sent, never
// propagated to the intake request.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

// HotLeadThreshold is the quality score at or above which staff are
// notified.
const HotLeadThreshold = 70

// HotLeadNotifier emails the configured staff address about hot leads.
type HotLeadNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

// NewHotLeadNotifier creates a notifier delivering to the given address.
// A nil sender or empty address disables delivery; Notify then always
// returns false.
func NewHotLeadNotifier(sender EmailSender, to string, logger *logging.Logger) *HotLeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &HotLeadNotifier{
		sender: sender,
		to:     to,
		logger: logger,
	}
}

// Notify sends the alert iff the lead's quality score crosses the hot
// threshold. It never returns an error: internal failures are reported
// as sent=false.
func (n *HotLeadNotifier) Notify(ctx context.Context, lead *leads.Lead) bool {
	if lead == nil || lead.QualityScore == nil || *lead.QualityScore < HotLeadThreshold {
		return false
	}
	if n.sender == nil || strings.TrimSpace(n.to) == "" {
		n.logger.Warn("hot lead notification skipped: no sender configured", "lead_id", lead.ID)
		return false
	}

	score := *lead.QualityScore
	msg := EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("🔥 Hot Lead: %s (Score: %d)", lead.Name, score),
		Body:    n.textBody(lead, score),
		HTML:    n.htmlBody(lead, score),
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error("hot lead notification failed", "error", err, "lead_id", lead.ID)
		return false
	}

	n.logger.Info("hot lead notification sent", "lead_id", lead.ID, "score", score)
	return true
}

func (n *HotLeadNotifier) textBody(lead *leads.Lead, score int) string {
	return fmt.Sprintf(
		"New hot lead (score %d/100)\n\nName: %s\nEmail: %s\nPhone: %s\nMessage: %s\n\nAI analysis\nGoal: %s\nTimeline: %s\nBudget: %s\n",
		score, lead.Name, lead.Email, lead.Phone, lead.InitialMessage,
		deref(lead.Goal), deref(lead.Timeline), deref(lead.BudgetRange),
	)
}

func (n *HotLeadNotifier) htmlBody(lead *leads.Lead, score int) string {
	esc := html.EscapeString
	return fmt.Sprintf(`
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto;">
    <div style="background: #2563eb; color: white; padding: 20px; border-radius: 8px;">
      <h1>🔥 New Hot Lead!</h1>
    </div>
    <div style="background: #f9fafb; padding: 20px; margin-top: 10px;">
      <h2 style="color: #059669;">Score: %d/100</h2>
      <p><strong>Name:</strong> %s</p>
      <p><strong>Email:</strong> %s</p>
      <p><strong>Phone:</strong> %s</p>
      <p><strong>Message:</strong> %s</p>
      <hr>
      <h3>AI Analysis</h3>
      <p><strong>Goal:</strong> %s</p>
      <p><strong>Timeline:</strong> %s</p>
      <p><strong>Budget:</strong> %s</p>
    </div>
  </div>
</body>
</html>`,
		score, esc(lead.Name), esc(lead.Email), esc(lead.Phone), esc(lead.InitialMessage),
		esc(deref(lead.Goal)), esc(deref(lead.Timeline)), esc(deref(lead.BudgetRange)),
	)
}

func deref(v *string) string {
	if v == nil {
		return "unclear"
	}
	return *v
}
