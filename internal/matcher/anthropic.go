package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/loomhq/loom/internal/domain/reconcile"
)

const systemPrompt = `You match team conversations to existing work items.

You receive one conversation excerpt and a list of candidate work items.
For each candidate that the conversation is genuinely about, report a match
with a confidence between 0 and 1 and a one-sentence rationale. Be
conservative: casual mentions, greetings, and chatter are not matches. If
the conversation states that matched work changed state (started, finished,
blocked, reopened), include the proposed state change. Independently, judge
whether the conversation asks for work no candidate covers and report that
as new_work with its own confidence and a short title.

Respond with JSON only, no prose, in this shape:
{
  "matches": [
    {"candidate_id": "...", "confidence": 0.0, "rationale": "...",
     "state_change": {"to_state_name": "...", "to_state_type": "backlog|unstarted|started|paused|completed|cancelled"}}
  ],
  "new_work": {"confidence": 0.0, "rationale": "...", "title": "..."}
}
Omit state_change when no state change is described. Use confidence 0 in
new_work when nothing new is requested.`

// Client is the Anthropic-backed matching capability.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
	logger *slog.Logger
}

// NewClient creates a matcher backed by the Anthropic API.
func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		logger: logger,
	}
}

// Match sends one conversation and its candidates to the model. Any API or
// parse failure is reported as a capability error so callers leave the
// batch for the next cycle instead of dropping it.
func (c *Client) Match(ctx context.Context, contextText string, candidates []reconcile.Candidate) (reconcile.MatchResult, error) {
	prompt, err := buildPrompt(contextText, candidates)
	if err != nil {
		return reconcile.MatchResult{}, fmt.Errorf("%w: %v", reconcile.ErrCapability, err)
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return reconcile.MatchResult{}, fmt.Errorf("%w: %v", reconcile.ErrCapability, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	result, err := ParseResult(text.String())
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("unparseable match response", "error", err)
		}
		return reconcile.MatchResult{}, fmt.Errorf("%w: %v", reconcile.ErrCapability, err)
	}
	return result, nil
}

func buildPrompt(contextText string, candidates []reconcile.Candidate) (string, error) {
	cands, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Conversation:\n")
	b.WriteString(contextText)
	b.WriteString("\nCandidate work items:\n")
	b.Write(cands)
	return b.String(), nil
}

// ParseResult extracts the MatchResult JSON from a model response,
// tolerating surrounding code fences.
func ParseResult(text string) (reconcile.MatchResult, error) {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var result reconcile.MatchResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return reconcile.MatchResult{}, fmt.Errorf("parsing match response: %w", err)
	}

	for _, m := range result.Matches {
		if m.Confidence < 0 || m.Confidence > 1 {
			return reconcile.MatchResult{}, fmt.Errorf("match confidence %f out of range", m.Confidence)
		}
	}
	return result, nil
}
