package summary

import (
	"fmt"
	"strings"

	"github.com/warmline/warmline/types"
)

// Fallback produces a deterministic local summary when the upstream
// summarizer is unreachable or too slow. The same context always yields
// the same summary.
func Fallback(cc types.ConversationContext) *types.Summary {
	issue := classifyIssue(cc)

	var b strings.Builder
	caller := cc.CallerName
	if caller == "" {
		caller = "The caller"
	}
	fmt.Fprintf(&b, "%s contacted us regarding %s.", caller, issue)
	if cc.DurationMinutes >= 1 {
		fmt.Fprintf(&b, " The call has been running for about %d minutes.", int(cc.DurationMinutes))
	}
	if cc.CurrentIssue != "" {
		fmt.Fprintf(&b, " Current issue: %s.", strings.TrimRight(cc.CurrentIssue, "."))
	}
	if cc.OperatorNotes != "" {
		fmt.Fprintf(&b, " Notes from the current operator: %s.", strings.TrimRight(cc.OperatorNotes, "."))
	}
	b.WriteString(" Please continue with resolution; no automatic summary was available for this handoff.")

	return &types.Summary{
		Text:      b.String(),
		Sentiment: classifySentiment(cc),
		Urgency:   classifyUrgency(cc),
		Fallback:  true,
	}
}

func classifyIssue(cc types.ConversationContext) string {
	text := strings.ToLower(cc.CurrentIssue + " " + cc.History + " " + cc.OperatorNotes)
	if strings.TrimSpace(text) == "" {
		return "a customer service inquiry"
	}
	switch {
	case strings.Contains(text, "billing") || strings.Contains(text, "payment") || strings.Contains(text, "invoice"):
		return "billing and payment issues"
	case strings.Contains(text, "technical") || strings.Contains(text, "account") || strings.Contains(text, "login"):
		return "technical account problems"
	default:
		return "general customer service needs"
	}
}

// classifySentiment applies a small keyword heuristic over everything we
// know about the conversation.
func classifySentiment(cc types.ConversationContext) string {
	text := strings.ToLower(cc.CurrentIssue + " " + cc.History + " " + cc.OperatorNotes)
	switch {
	case strings.Contains(text, "frustrated") || strings.Contains(text, "angry") || strings.Contains(text, "furious"):
		return types.SentimentFrustrated
	case strings.Contains(text, "upset") || strings.Contains(text, "complaint") || strings.Contains(text, "unacceptable"):
		return types.SentimentNegative
	case strings.Contains(text, "happy") || strings.Contains(text, "thank") || strings.Contains(text, "great"):
		return types.SentimentPositive
	default:
		return types.SentimentNeutral
	}
}

func classifyUrgency(cc types.ConversationContext) string {
	switch strings.ToLower(cc.Priority) {
	case "urgent", "critical":
		return types.UrgencyCritical
	case "high":
		return types.UrgencyHigh
	case "low":
		return types.UrgencyLow
	}
	text := strings.ToLower(cc.CurrentIssue + " " + cc.History)
	if strings.Contains(text, "urgent") || strings.Contains(text, "immediately") || strings.Contains(text, "outage") {
		return types.UrgencyHigh
	}
	return types.UrgencyMedium
}
