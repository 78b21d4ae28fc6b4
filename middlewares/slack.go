package middlewares

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/netresearch/ofelia/core"
)

var (
	slackUsername   = "jobberd"
	slackPayloadVar = "payload"
)

// SlackConfig configures the Slack middleware.
type SlackConfig struct {
	SlackWebhook     string
	SlackOnlyOnError bool
	// Dedup suppresses repeated error notifications for the same route
	// within its cooldown window, if set.
	Dedup *NotificationDedup
}

// NewSlack returns a Slack middleware, or nil if c is the zero value.
func NewSlack(c *SlackConfig) core.Middleware {
	if IsEmpty(c) {
		return nil
	}
	return &Slack{SlackConfig: *c, client: resty.New().SetTimeout(5 * time.Second)}
}

// Slack posts a message to a Slack incoming webhook after a job finishes.
type Slack struct {
	SlackConfig
	client *resty.Client
}

// Call lets the route run, then notifies Slack of the outcome.
func (m *Slack) Call(next core.CallNext, jc *core.JobContext) (any, error) {
	result, err := next(jc)

	shouldNotify := err != nil || !m.SlackOnlyOnError
	if shouldNotify {
		if err != nil && m.Dedup != nil && !m.Dedup.ShouldNotify(jc, err) {
			return result, err
		}
		m.pushMessage(jc, err)
	}
	return result, err
}

func (m *Slack) pushMessage(jc *core.JobContext, jobErr error) {
	u, parseErr := url.Parse(m.SlackWebhook)
	if parseErr != nil || u.Scheme == "" || u.Host == "" {
		if jc.Logger != nil {
			jc.Logger.Errorf("Slack webhook URL is invalid: %q", m.SlackWebhook)
		}
		return
	}

	if m.client == nil {
		m.client = resty.New().SetTimeout(5 * time.Second)
	}

	content, _ := json.Marshal(m.buildMessage(jc, jobErr))
	values := url.Values{}
	values.Add(slackPayloadVar, string(content))

	resp, reqErr := m.client.R().
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(values.Encode()).
		Post(u.String())
	if reqErr != nil {
		if jc.Logger != nil {
			jc.Logger.Errorf("Slack error calling %q: %v", m.SlackWebhook, reqErr)
		}
		return
	}
	if resp.StatusCode() != 200 && jc.Logger != nil {
		jc.Logger.Errorf("Slack error non-200 status code calling %q", m.SlackWebhook)
	}
}

func (m *Slack) buildMessage(jc *core.JobContext, jobErr error) *slackMessage {
	msg := &slackMessage{Username: slackUsername}
	msg.Text = fmt.Sprintf("Route *%s*, job *%s* finished with status *%s*", jc.Job.RouteName(), jc.Job.ID(), jc.Job.Status())

	switch {
	case jobErr != nil:
		msg.Attachments = append(msg.Attachments, slackAttachment{
			Title: "Execution failed",
			Text:  jobErr.Error(),
			Color: "#F35A00",
		})
	default:
		msg.Attachments = append(msg.Attachments, slackAttachment{
			Title: "Execution successful",
			Color: "#7CD197",
		})
	}

	return msg
}

type slackMessage struct {
	Text        string            `json:"text"`
	Username    string            `json:"username"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color string `json:"color,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}
