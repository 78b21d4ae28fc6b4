package middlewares

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/netresearch/ofelia/core"
)

// WebhookConfig configures the Webhook middleware.
type WebhookConfig struct {
	Name    string
	URL     string
	Method  string // defaults to POST
	Timeout time.Duration
	// Headers are sent with every request, e.g. for bearer tokens.
	Headers map[string]string
	// RetryCount is the number of retries on transport failure or a
	// non-2xx response.
	RetryCount int
	RetryDelay time.Duration
	// OnlyOnError, when true, only fires the webhook for failed jobs.
	OnlyOnError bool
	// AllowedHosts restricts which hosts URL may resolve to. Empty means
	// no restriction.
	AllowedHosts []string
	Dedup        *NotificationDedup
}

// NewWebhook returns a Webhook middleware built from config, or an error
// if config is invalid.
func NewWebhook(config *WebhookConfig) (core.Middleware, error) {
	if config == nil {
		return nil, nil //nolint:nilnil // nil config means no middleware needed
	}
	if config.Name == "" {
		return nil, ErrWebhookNameEmpty
	}
	if config.URL == "" {
		return nil, ErrMissingPresetOrURL
	}
	if err := validateWebhookHost(config.URL, config.AllowedHosts); err != nil {
		return nil, err
	}
	if config.Method == "" {
		config.Method = "POST"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(config.RetryDelay)

	return &Webhook{Config: *config, client: client}, nil
}

func validateWebhookHost(rawURL string, allowed []string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURLScheme, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURLScheme
	}
	if u.Host == "" {
		return ErrMissingHost
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, host := range allowed {
		if u.Hostname() == host {
			return nil
		}
	}
	return ErrHostNotAllowed
}

// Webhook posts a JSON payload describing the job outcome to a configured
// URL after a route finishes.
type Webhook struct {
	Config WebhookConfig
	client *resty.Client
}

type webhookPayload struct {
	WebhookName string    `json:"webhook_name"`
	RouteName   string    `json:"route_name"`
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	ExecAt      time.Time `json:"exec_at"`
	Error       string    `json:"error,omitempty"`
}

// Call lets the route run, then fires the webhook with the outcome.
func (w *Webhook) Call(next core.CallNext, jc *core.JobContext) (any, error) {
	result, err := next(jc)

	if err == nil && w.Config.OnlyOnError {
		return result, err
	}
	if err != nil && w.Config.Dedup != nil && !w.Config.Dedup.ShouldNotify(jc, err) {
		return result, err
	}

	if sendErr := w.send(jc, err); sendErr != nil && jc.Logger != nil {
		jc.Logger.Errorf("webhook %q for route %q: %v", w.Config.Name, jc.Job.RouteName(), sendErr)
	}
	return result, err
}

func (w *Webhook) send(jc *core.JobContext, jobErr error) error {
	payload := webhookPayload{
		WebhookName: w.Config.Name,
		RouteName:   jc.Job.RouteName(),
		JobID:       jc.Job.ID(),
		Status:      jc.Job.Status().String(),
		ExecAt:      jc.Job.ExecAt(),
	}
	if jobErr != nil {
		payload.Error = jobErr.Error()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeaders(w.Config.Headers).
		SetBody(body)

	resp, err := req.Execute(w.Config.Method, w.Config.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookHTTPFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %d", ErrWebhookHTTPFailed, resp.StatusCode())
	}
	return nil
}
