// Package fallback hands text the router could not classify to an
// OpenAI-compatible chat endpoint and maps the reply onto a structured
// engine request.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/sandeepkv93/schedd/internal/engine"
)

const (
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 15 * time.Second
)

var ErrDisabled = errors.New("fallback: no model endpoint configured")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Enabled reports whether enough is configured to reach an endpoint.
func (c Config) Enabled() bool {
	return c.BaseURL != "" || c.APIKey != ""
}

type Resolver struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func New(cfg Config) (*Resolver, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	r := &Resolver{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		loc:     cfg.Location,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
	if r.model == "" {
		r.model = DefaultModel
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// ResolveUnresolved asks the model for one structured request. A reply with
// an empty action means the text is not a scheduling request.
func (r *Resolver) ResolveUnresolved(ctx context.Context, text string) (*engine.Request, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "fallback: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("fallback: empty completion")
	}

	req, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("fallback resolved",
		"action", req.Action,
		"latency_ms", time.Since(started).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)
	if req.Action == "" {
		return nil, nil
	}
	req.Query = ""
	return &req, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseReply decodes the model's JSON, repairing it when it is malformed.
func parseReply(content string) (engine.Request, error) {
	content = strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	var req engine.Request
	if err := json.Unmarshal([]byte(content), &req); err == nil {
		return req, nil
	}
	fixed, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return engine.Request{}, errors.Wrap(err, "fallback: repair reply")
	}
	req = engine.Request{}
	if err := json.Unmarshal([]byte(fixed), &req); err != nil {
		return engine.Request{}, errors.Wrap(err, "fallback: decode reply")
	}
	return req, nil
}

func (r *Resolver) systemPrompt() string {
	actions := make([]string, 0, len(engine.Actions))
	for _, a := range engine.Actions {
		actions = append(actions, string(a))
	}
	now := r.now().In(r.loc)
	var b strings.Builder
	fmt.Fprintf(&b, "You convert one calendar request into a JSON object. Today is %s (%s), the time is %s, the timezone is %s.\n",
		now.Format("2006-01-02"), now.Weekday(), now.Format("15:04"), r.loc)
	fmt.Fprintf(&b, "Set \"action\" to one of: %s. Use an empty action when the text is not a calendar request.\n", strings.Join(actions, ", "))
	b.WriteString(`Other keys: id, title, new_title, description, location, modality, label, date, start, end, duration, shift_by, from, to, window, limit, all, weekdays, interval, count, until, rrule, template, trigger_at, lead_minutes, minutes, active, channel, appointment_id, due_only, ids.
Dates are YYYY-MM-DD, times HH:MM in 24-hour form, durations and leads are minutes, trigger_at is "YYYY-MM-DD HH:MM".
Reply with the JSON object only.`)
	return b.String()
}
