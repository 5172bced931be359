package summary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/warmline/warmline/types"
)

// briefingPrompt asks the model for talking points grounded in the
// caller's stated problem, for the operator about to take the call over.
const briefingPrompt = `You prepare the operator who is about to take over a live support call.
Based on the handoff summary below, write short actionable guidance:
1. The caller's specific issue, restated.
2. Immediate next steps.
3. Follow-up questions worth asking.
4. Pitfalls to avoid given the caller's mood.
Keep it under 150 words. Plain text, no markdown.`

// BriefingNote turns a summary into operator-facing talking points. On
// any provider error a deterministic local note is returned instead;
// the handoff never waits on a retry.
func (c *Client) BriefingNote(ctx context.Context, s *types.Summary) (string, error) {
	if s == nil || strings.TrimSpace(s.Text) == "" {
		return "", types.NewError(types.ErrInvalidRequest, "no summary to brief from")
	}

	user := fmt.Sprintf("Handoff summary: %s\nCaller sentiment: %s\nUrgency: %s",
		s.Text, s.Sentiment, s.Urgency)

	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: briefingPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		c.logger.Warn("briefing note generation failed, using local note", zap.Error(err))
		return FallbackBriefingNote(s), nil
	}

	note := strings.TrimSpace(content)
	if note == "" {
		return FallbackBriefingNote(s), nil
	}
	return note, nil
}

// FallbackBriefingNote is the deterministic note used when the provider
// is unavailable.
func FallbackBriefingNote(s *types.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Handoff summary: %s", strings.TrimSpace(s.Text))

	switch s.Sentiment {
	case types.SentimentFrustrated, types.SentimentNegative:
		b.WriteString(" The caller is upset; acknowledge the situation before troubleshooting.")
	case types.SentimentPositive:
		b.WriteString(" The caller has been cooperative so far.")
	}

	switch s.Urgency {
	case types.UrgencyCritical, types.UrgencyHigh:
		b.WriteString(" Treat as time-sensitive.")
	}

	b.WriteString(" Confirm the issue with the caller before taking action.")
	return b.String()
}
