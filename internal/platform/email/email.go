package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"retentiond/internal/domain/notice"
	"retentiond/internal/platform/config"
)

type noopNotifier struct{}

func (noopNotifier) SendGuardianNotice(ctx context.Context, contact notice.Contact, templateKind string, vars map[string]string) error {
	return nil
}

type smtpNotifier struct {
	cfg config.Config
}

// New returns the SMTP-backed guardian notifier, or a no-op when email
// delivery is disabled.
func New(cfg config.Config) notice.Notifier {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopNotifier{}
	}
	return &smtpNotifier{cfg: cfg}
}

func (s *smtpNotifier) SendGuardianNotice(ctx context.Context, contact notice.Contact, templateKind string, vars map[string]string) error {
	if strings.TrimSpace(contact.Email) == "" {
		return fmt.Errorf("guardian contact has no email")
	}
	subject, body := renderNotice(templateKind, contact, vars)
	return s.send(ctx, s.cfg.EmailFrom, contact.Email, subject, body)
}

func renderNotice(templateKind string, contact notice.Contact, vars map[string]string) (string, string) {
	greeting := "Hello"
	if contact.Name != "" {
		greeting = "Hello " + contact.Name
	}
	switch templateKind {
	case notice.TemplateRetentionNotice:
		return "Scheduled removal of your child's data",
			fmt.Sprintf("%s,\n\nAs part of our data retention policy, the following data categories will be removed: %s.\n\nNo action is required on your part.\n",
				greeting, vars["categories"])
	default:
		return "Data retention notice",
			fmt.Sprintf("%s,\n\nThis is a notification about your child's data: %v\n", greeting, vars)
	}
}

func (s *smtpNotifier) send(ctx context.Context, from, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	msg := buildMessage(from, to, subject, body)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPUseTLS {
		tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}
		if err := client.StartTLS(tlsConfig); err != nil {
			return err
		}
	}

	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + body)
}
