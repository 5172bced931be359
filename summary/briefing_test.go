package summary

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warmline/warmline/types"
)

func TestClient_BriefingNote(t *testing.T) {
	srv := chatServer(t, "1. Caller was double-charged. 2. Verify the invoice first.", http.StatusOK)
	defer srv.Close()
	c := newClientFor(srv)

	note, err := c.BriefingNote(context.Background(), &types.Summary{
		Text:      "Caller was double-charged.",
		Sentiment: types.SentimentFrustrated,
		Urgency:   types.UrgencyHigh,
	})
	require.NoError(t, err)
	assert.Contains(t, note, "Verify the invoice")
}

func TestClient_BriefingNote_FallsBackOnUpstreamError(t *testing.T) {
	srv := chatServer(t, "", http.StatusBadGateway)
	defer srv.Close()
	c := newClientFor(srv)

	note, err := c.BriefingNote(context.Background(), &types.Summary{
		Text:      "Caller was double-charged.",
		Sentiment: types.SentimentFrustrated,
		Urgency:   types.UrgencyHigh,
	})
	require.NoError(t, err)
	assert.Contains(t, note, "Caller was double-charged.")
	assert.Contains(t, note, "time-sensitive")
}

func TestClient_BriefingNote_RejectsEmptySummary(t *testing.T) {
	srv := chatServer(t, "irrelevant", http.StatusOK)
	defer srv.Close()
	c := newClientFor(srv)

	_, err := c.BriefingNote(context.Background(), nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))

	_, err = c.BriefingNote(context.Background(), &types.Summary{Text: "   "})
	assert.True(t, types.IsCode(err, types.ErrInvalidRequest))
}

func TestFallbackBriefingNote_SentimentAndUrgency(t *testing.T) {
	calm := FallbackBriefingNote(&types.Summary{
		Text:      "Routine address update.",
		Sentiment: types.SentimentNeutral,
		Urgency:   types.UrgencyLow,
	})
	assert.Contains(t, calm, "Routine address update.")
	assert.NotContains(t, calm, "time-sensitive")
	assert.NotContains(t, calm, "upset")

	hot := FallbackBriefingNote(&types.Summary{
		Text:      "Service outage for a hospital client.",
		Sentiment: types.SentimentFrustrated,
		Urgency:   types.UrgencyCritical,
	})
	assert.Contains(t, hot, "upset")
	assert.Contains(t, hot, "time-sensitive")
}
