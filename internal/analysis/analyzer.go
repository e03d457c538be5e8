package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/workflowlens/runner-api/internal/config"
	"github.com/workflowlens/runner-api/internal/domain"
	"google.golang.org/genai"
)

// defaultPromptTemplate asks the model for a structured breakdown of
// the video. Jobs can override it wholesale via the payload's prompt
// field.
const defaultPromptTemplate = `Analyze the video at {{.VideoURL}}.

Break the workflow shown in the video into discrete steps{{if .SegmentLength}}, using segments of roughly {{.SegmentLength}} seconds{{end}}. For each step describe the action taken, the tool or screen involved, and the outcome.

Respond with a single JSON object of the form:
{"summary": "<one paragraph>", "steps": [{"start_seconds": <int>, "description": "<text>"}]}

Respond with JSON only, no surrounding prose.`

// request is the decoded job payload.
type request struct {
	VideoURL      string `json:"video_url"`
	Prompt        string `json:"prompt,omitempty"`
	Model         string `json:"model,omitempty"`
	SegmentLength int    `json:"segment_length,omitempty"`
}

// result is what Execute hands back for storage in the job's result
// column.
type result struct {
	Model    string          `json:"model"`
	Analysis json.RawMessage `json:"analysis"`
}

// modelClient is the slice of the Gemini API the analyzer needs.
// The indirection exists so retry and parsing logic is testable
// without live API calls.
type modelClient interface {
	generate(ctx context.Context, model, prompt string) (string, error)
}

// Analyzer implements worker.Executor by sending analysis prompts to
// the Gemini API.
type Analyzer struct {
	logger         *slog.Logger
	config         config.AnalysisConfig
	promptTemplate *template.Template
	client         modelClient
}

// NewAnalyzer creates an Analyzer backed by a real Gemini client.
func NewAnalyzer(ctx context.Context, logger *slog.Logger, cfg config.AnalysisConfig) (*Analyzer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newAnalyzer(logger, cfg, &geminiClient{client: client})
}

func newAnalyzer(logger *slog.Logger, cfg config.AnalysisConfig, client modelClient) (*Analyzer, error) {
	tmpl, err := template.New("analysis").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &Analyzer{
		logger:         logger.With("component", "analyzer"),
		config:         cfg,
		promptTemplate: tmpl,
		client:         client,
	}, nil
}

// Execute analyzes the video described by the job payload and returns
// the structured analysis for storage.
func (a *Analyzer) Execute(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	req, err := a.parsePayload(job.Payload)
	if err != nil {
		return nil, err
	}

	prompt, err := a.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = a.config.ModelName
	}

	analysis, err := a.callWithRetry(ctx, model, prompt)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(result{Model: model, Analysis: analysis})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return out, nil
}

// parsePayload decodes and validates the job payload.
func (a *Analyzer) parsePayload(payload json.RawMessage) (*request, error) {
	var req request
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if req.VideoURL == "" {
		return nil, fmt.Errorf("%w: video_url is required", ErrInvalidPayload)
	}
	if req.SegmentLength < 0 {
		return nil, fmt.Errorf("%w: segment_length cannot be negative", ErrInvalidPayload)
	}
	return &req, nil
}

// buildPrompt renders the analysis prompt. A payload-supplied prompt
// replaces the template entirely.
func (a *Analyzer) buildPrompt(req *request) (string, error) {
	if req.Prompt != "" {
		return req.Prompt, nil
	}

	var buf bytes.Buffer
	err := a.promptTemplate.Execute(&buf, struct {
		VideoURL      string
		SegmentLength int
	}{req.VideoURL, req.SegmentLength})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry calls the model, retrying transient failures with
// exponential backoff and jitter. Permanent errors (blocked content,
// unusable responses) return immediately.
func (a *Analyzer) callWithRetry(ctx context.Context, model, prompt string) (json.RawMessage, error) {
	maxRetries := a.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelaySeconds := a.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		a.logger.InfoContext(ctx, "calling model",
			"model", model,
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		text, err := a.client.generate(ctx, model, prompt)
		if err == nil {
			analysis, parseErr := parseAnalysis(text)
			if parseErr == nil {
				return analysis, nil
			}
			err = parseErr
		}

		if isPermanent(err) {
			a.logger.WarnContext(ctx, "permanent model error, not retrying", "error", err)
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded %d attempts: %v",
				ErrTransientFailure, maxRetries+1, err)
		}

		// delay = baseDelay * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		a.logger.InfoContext(ctx, "retrying model call",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

// parseAnalysis validates that the model produced the JSON object the
// prompt asked for.
func parseAnalysis(text string) (json.RawMessage, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", ErrInvalidResponse, err)
	}
	return json.RawMessage(text), nil
}

// isPermanent reports whether err cannot be fixed by retrying.
func isPermanent(err error) bool {
	return errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrInvalidPayload)
}

// geminiClient adapts *genai.Client to modelClient.
type geminiClient struct {
	client *genai.Client
}

func (g *geminiClient) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	return resp.Text(), nil
}
