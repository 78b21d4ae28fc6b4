package middlewares

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/netresearch/ofelia/config"
	"github.com/netresearch/ofelia/core"
)

// MailConfig configures the Mail middleware.
type MailConfig struct {
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPTLSSkipVerify bool
	EmailTo           string
	EmailFrom         string
	EmailSubject      string
	MailOnlyOnError   bool
	// Dedup suppresses repeated error notifications for the same route
	// within its cooldown window, if set.
	Dedup *NotificationDedup

	subjectTemplate *template.Template
}

// NewMail returns a Mail middleware, or nil if c is the zero value. It
// rejects malformed recipient/sender addresses before any job runs.
func NewMail(c *MailConfig) (core.Middleware, error) {
	if IsEmpty(c) {
		return nil, nil //nolint:nilnil // nil config means no middleware needed
	}

	sanitizer := config.NewSanitizer()
	if err := sanitizer.ValidateEmailList(c.EmailTo); err != nil {
		return nil, fmt.Errorf("mail middleware: %w", err)
	}
	if c.EmailFrom != "" && !strings.Contains(c.EmailFrom, "%") {
		if err := sanitizer.ValidateEmailList(c.EmailFrom); err != nil {
			return nil, fmt.Errorf("mail middleware: %w", err)
		}
	}

	if c.EmailSubject != "" {
		tmpl := template.New("custom-mail-subject").Funcs(template.FuncMap{"status": statusLabel})
		if parsed, err := tmpl.Parse(c.EmailSubject); err == nil {
			c.subjectTemplate = parsed
		}
	}
	return &Mail{MailConfig: *c}, nil
}

// Mail delivers an email report after a job finishes.
type Mail struct {
	MailConfig
}

type mailReport struct {
	RouteName string
	JobID     string
	Status    core.Status
	Started   time.Time
	Err       error
}

// Call lets the route run, then reports the outcome by email.
func (m *Mail) Call(next core.CallNext, jc *core.JobContext) (any, error) {
	started := time.Now()
	result, err := next(jc)

	if err == nil && m.MailOnlyOnError {
		return result, err
	}
	if err != nil && m.Dedup != nil && !m.Dedup.ShouldNotify(jc, err) {
		return result, err
	}

	report := mailReport{
		RouteName: jc.Job.RouteName(),
		JobID:     jc.Job.ID(),
		Status:    jc.Job.Status(),
		Started:   started,
		Err:       err,
	}
	if mailErr := m.sendMail(report); mailErr != nil && jc.Logger != nil {
		jc.Logger.Errorf("mail notification for route %q: %v", report.RouteName, mailErr)
	}
	return result, err
}

func (m *Mail) sendMail(r mailReport) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from())
	msg.SetHeader("To", strings.Split(m.EmailTo, ",")...)
	msg.SetHeader("Subject", m.subject(r))
	msg.SetBody("text/html", m.body(r))

	d := mail.NewDialer(m.SMTPHost, m.SMTPPort, m.SMTPUser, m.SMTPPassword)
	if m.SMTPTLSSkipVerify {
		// #nosec G402 -- explicit opt-in for development/legacy servers.
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("dial and send mail: %w", err)
	}
	return nil
}

func (m *Mail) from() string {
	if !strings.Contains(m.EmailFrom, "%") {
		return m.EmailFrom
	}
	hostname, _ := os.Hostname()
	return fmt.Sprintf(m.EmailFrom, hostname)
}

func (m *Mail) subject(r mailReport) string {
	buf := bytes.NewBuffer(nil)
	tmpl := mailSubjectTemplate
	if m.subjectTemplate != nil {
		tmpl = m.subjectTemplate
	}
	_ = tmpl.Execute(buf, r)
	return buf.String()
}

func (m *Mail) body(r mailReport) string {
	buf := bytes.NewBuffer(nil)
	_ = mailBodyTemplate.Execute(buf, r)
	return buf.String()
}

var mailBodyTemplate, mailSubjectTemplate *template.Template

func init() {
	f := template.FuncMap{"status": statusLabel}

	mailBodyTemplate = template.New("mail-body").Funcs(f)
	mailSubjectTemplate = template.New("mail-subject").Funcs(f)

	template.Must(mailBodyTemplate.Parse(`
		<p>
			Route <b>{{.RouteName}}</b>, job <b>{{.JobID}}</b>,
			status <b>{{status .Status}}</b>, started <b>{{.Started}}</b>
			{{if .Err}}<pre>{{.Err}}</pre>{{end}}
		</p>
  `))

	template.Must(mailSubjectTemplate.Parse(
		"[{{status .Status}}] route {{.RouteName}} (job {{.JobID}})",
	))
}

func statusLabel(s core.Status) string {
	return s.String()
}
