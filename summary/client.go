package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warmline/warmline/config"
	"github.com/warmline/warmline/internal/tlsutil"
	"github.com/warmline/warmline/types"
)

// systemPrompt instructs the model to answer with a single JSON object.
const systemPrompt = `You brief a human operator who is about to take over a live support call.
Write a concise handoff summary of the conversation so far.
Respond with a single JSON object and nothing else:
{"summary": "...", "sentiment": "positive|neutral|negative|frustrated", "urgency": "low|medium|high|critical"}`

// historyTokenBudget caps how much raw conversation history goes into
// the prompt.
const historyTokenBudget = 2000

// Client generates briefing summaries through an OpenAI-compatible chat
// completions endpoint. Implements transfer.Summarizer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	tokens     *tokenCounter
	logger     *zap.Logger
}

// NewClient creates a summarizer client from config.
func NewClient(cfg config.SummarizerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Client{
		httpClient: tlsutil.SecureHTTPClient(timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  maxTokens,
		tokens:     newTokenCounter(cfg.Model),
		logger:     logger.With(zap.String("component", "summarizer")),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// modelOutput is the JSON shape the model is asked to produce.
type modelOutput struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Urgency   string `json:"urgency"`
}

// Summarize asks the model for a briefing summary of the conversation.
func (c *Client) Summarize(ctx context.Context, cc types.ConversationContext) (*types.Summary, error) {
	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: c.userPrompt(cc)},
	})
	if err != nil {
		return nil, err
	}
	return c.parseOutput(content)
}

// chat performs one chat-completions round trip and returns the model's
// message content.
func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
	}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "encode summarizer request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "build summarizer request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamFailure, "summarizer request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", types.NewErrorf(types.ErrUpstreamFailure, "summarizer status %d: %s",
			resp.StatusCode, string(msg)).WithRetryable(resp.StatusCode >= 500)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewError(types.ErrUpstreamFailure, "decode summarizer response").WithCause(err)
	}
	if out.Error != nil {
		return "", types.NewErrorf(types.ErrUpstreamFailure, "summarizer error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", types.NewError(types.ErrUpstreamFailure, "summarizer returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// userPrompt renders the conversation context, truncating raw history to
// the token budget.
func (c *Client) userPrompt(cc types.ConversationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call ID: %s\n", cc.CallID)
	if cc.CallerName != "" {
		fmt.Fprintf(&b, "Caller: %s\n", cc.CallerName)
	}
	if cc.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", cc.Priority)
	}
	if cc.DurationMinutes > 0 {
		fmt.Fprintf(&b, "Duration so far: %.0f minutes\n", cc.DurationMinutes)
	}
	if cc.CurrentIssue != "" {
		fmt.Fprintf(&b, "Current issue: %s\n", cc.CurrentIssue)
	}
	if cc.OperatorNotes != "" {
		fmt.Fprintf(&b, "Operator notes: %s\n", cc.OperatorNotes)
	}
	if cc.History != "" {
		fmt.Fprintf(&b, "Conversation so far:\n%s\n", c.tokens.Truncate(cc.History, historyTokenBudget))
	}
	return b.String()
}

// parseOutput decodes the model's JSON answer, tolerating surrounding
// prose or code fences, and clamps enum fields to known values.
func (c *Client) parseOutput(content string) (*types.Summary, error) {
	raw := content
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		// The model ignored the format; use its prose as the summary.
		text := strings.TrimSpace(content)
		if text == "" {
			return nil, types.NewError(types.ErrUpstreamFailure, "summarizer returned empty content")
		}
		c.logger.Debug("summarizer output was not valid JSON, using raw text")
		return &types.Summary{
			Text:      text,
			Sentiment: types.SentimentNeutral,
			Urgency:   types.UrgencyMedium,
			Provider:  c.model,
		}, nil
	}

	return &types.Summary{
		Text:      strings.TrimSpace(out.Summary),
		Sentiment: clampSentiment(out.Sentiment),
		Urgency:   clampUrgency(out.Urgency),
		Provider:  c.model,
	}, nil
}

func clampSentiment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case types.SentimentPositive:
		return types.SentimentPositive
	case types.SentimentNegative:
		return types.SentimentNegative
	case types.SentimentFrustrated:
		return types.SentimentFrustrated
	default:
		return types.SentimentNeutral
	}
}

func clampUrgency(u string) string {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case types.UrgencyLow:
		return types.UrgencyLow
	case types.UrgencyHigh:
		return types.UrgencyHigh
	case types.UrgencyCritical:
		return types.UrgencyCritical
	default:
		return types.UrgencyMedium
	}
}
