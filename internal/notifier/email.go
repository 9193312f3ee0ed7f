package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/julianstephens/dayplan/internal/models"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink mails system messages and end-of-task summaries. Start reminders
// are too short-lived for email and are skipped.
type EmailSink struct {
	dialer mailSender
	from   string
	to     string
}

func NewEmailSink(host string, port int, user, password, from, to string) *EmailSink {
	if from == "" {
		from = user
	}
	return &EmailSink{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		to:     to,
	}
}

func (e *EmailSink) Name() string { return "email" }

func (e *EmailSink) Send(_ context.Context, cfg models.NotificationConfig) error {
	switch cfg.Kind {
	case models.NotificationSystem, models.NotificationTaskEnd, models.NotificationScheduleUpdate:
	default:
		return ErrSkipped
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to)
	m.SetHeader("Subject", "[dayplan] "+cfg.Title)
	m.SetBody("text/plain", Text(cfg))
	m.AddAlternative("text/html", renderHTML(cfg))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderHTML(cfg models.NotificationConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3>\n<p>%s</p>\n", html.EscapeString(cfg.Title), html.EscapeString(cfg.Message))
	if len(cfg.Actions) > 0 {
		b.WriteString("<p>Reply from the app with one of:</p>\n<ul>\n")
		for _, a := range cfg.Actions {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(a.Label))
		}
		b.WriteString("</ul>\n")
	}
	return b.String()
}
