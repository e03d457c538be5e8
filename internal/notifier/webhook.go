package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workflowlens/runner-api/internal/domain"
)

// sourceHeader identifies this service to the receiving endpoint so it
// can distinguish our callbacks from other traffic.
const sourceHeader = "runner-api"

// defaultTimeout bounds a single delivery attempt when no timeout is
// configured.
const defaultTimeout = 10 * time.Second

// tokenLifetime is how long a delivery token stays valid. Deliveries
// are immediate, so the window only needs to cover clock skew plus the
// request itself.
const tokenLifetime = 5 * time.Minute

// payload is the JSON body posted to the webhook endpoint.
type payload struct {
	JobID     string          `json:"job_id"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WebhookNotifier posts terminal job outcomes to a configured URL.
// It implements worker.Notifier. Delivery is fire-and-forget: errors
// are logged, never returned, and there are no retries.
type WebhookNotifier struct {
	url           string
	signingSecret []byte
	client        *http.Client
	logger        *slog.Logger
}

// NewWebhook creates a WebhookNotifier posting to url. An empty
// signingSecret disables the Authorization header; a zero timeout
// falls back to defaultTimeout.
func NewWebhook(url, signingSecret string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var secret []byte
	if signingSecret != "" {
		secret = []byte(signingSecret)
	}

	return &WebhookNotifier{
		url:           url,
		signingSecret: secret,
		client:        &http.Client{Timeout: timeout},
		logger:        logger.With("component", "webhook_notifier"),
	}
}

// Notify posts the job's terminal state to the webhook URL.
func (n *WebhookNotifier) Notify(ctx context.Context, job *domain.Job) {
	log := n.logger.With("job_id", job.ID, "status", job.Status)

	body, err := json.Marshal(payload{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		Result:    job.Result,
		Error:     job.ErrorMessage,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to encode webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", sourceHeader)

	if len(n.signingSecret) > 0 {
		token, err := n.deliveryToken(job)
		if err != nil {
			log.Error("failed to sign webhook request", "error", err)
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn("webhook delivery failed", "error", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("webhook endpoint rejected notification",
			"status_code", resp.StatusCode)
		return
	}

	log.Info("webhook delivered", "status_code", resp.StatusCode)
}

// deliveryToken mints a short-lived HS256 token tying the request to
// the job it describes, so the receiver can verify both origin and
// subject.
func (n *WebhookNotifier) deliveryToken(job *domain.Job) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    sourceHeader,
		Subject:   job.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.signingSecret)
}
