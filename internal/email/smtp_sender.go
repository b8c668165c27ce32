package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"diecast-collector/internal/domain"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
	}, nil
}

func (s *SMTPSender) SendVerificationLink(_ context.Context, toEmail, link string, expiresAt time.Time) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	subject := "Verify your email - DiecastCollector Pro"
	body := fmt.Sprintf(
		"Welcome to DiecastCollector Pro.\n\nVerify your email by visiting:\n%s\n\nThe link expires at %s UTC.\nIf you did not register, ignore this message.\n",
		link,
		expiresAt.UTC().Format(time.RFC3339),
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) SendDeliveryAlert(_ context.Context, toEmail string, overdue, upcoming []domain.DiecastCar) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	subject := fmt.Sprintf("Delivery Alert: %d Overdue", len(overdue))
	if len(upcoming) > 0 {
		subject += fmt.Sprintf(", %d Upcoming", len(upcoming))
	}

	var b strings.Builder
	if len(overdue) > 0 {
		b.WriteString("Overdue deliveries:\n")
		for _, car := range overdue {
			fmt.Fprintf(&b, "  - %s by %s, due %s\n", car.ModelName, car.Manufacturer, car.DeliveryDueDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	if len(upcoming) > 0 {
		b.WriteString("Upcoming deliveries:\n")
		for _, car := range upcoming {
			fmt.Fprintf(&b, "  - %s by %s, due %s\n", car.ModelName, car.Manufacturer, car.DeliveryDueDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	b.WriteString("Check your dashboard for details.\n")

	return s.send(toEmail, subject, b.String())
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{
			ServerName: s.host,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
