package utils

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/streakmate/streakmate/config"
)

// SendMail sends a plain text email using SMTP settings from config.
func SendMail(to, subject, body string) error {
	cfg := config.Get()
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return fmt.Errorf("smtp not configured")
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)

	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "StreakMate"
	}
	fromHeader := fmt.Sprintf("%s <%s>", fromName, cfg.SMTPFrom)

	headers := map[string]string{
		"From":         fromHeader,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if cfg.SMTPTLS {
		// STARTTLS with timeouts
		d := net.Dialer{Timeout: 5 * time.Second}
		conn, err := d.Dial("tcp", addr)
		if err != nil {
			return err
		}
		_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
		host, _, _ := net.SplitHostPort(addr)
		c, err := smtp.NewClient(conn, host)
		if err != nil {
			_ = conn.Close()
			return err
		}
		defer c.Close()
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return err
			}
		}
		if cfg.SMTPUsername != "" {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
		if err := c.Mail(cfg.SMTPFrom); err != nil {
			return err
		}
		if err := c.Rcpt(to); err != nil {
			return err
		}
		wc, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := wc.Write([]byte(msg.String())); err != nil {
			_ = wc.Close()
			return err
		}
		return wc.Close()
	}

	// Plain SMTP without TLS (not recommended)
	return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, []byte(msg.String()))
}

// MailNotifier delivers engine notifications over SMTP. It satisfies
// engine.Notifier; every method is fire-and-forget from the caller's point
// of view in the sense that errors are reported but carry no side effects.
type MailNotifier struct{}

// ChallengeInvite emails a challenge invitation.
func (MailNotifier) ChallengeInvite(email, inviter, challengeTitle string) error {
	subject := fmt.Sprintf("%s invited you to a challenge", inviter)
	body := fmt.Sprintf("%s invited you to join the challenge %q.\n\nOpen the app to accept or decline.", inviter, challengeTitle)
	return SendMail(email, subject, body)
}

// ChallengeSettled emails a participant their challenge result.
func (MailNotifier) ChallengeSettled(email, challengeTitle string, won bool, netAmount int) error {
	subject := fmt.Sprintf("Challenge %q has finished", challengeTitle)
	var body string
	switch {
	case won && netAmount > 0:
		body = fmt.Sprintf("You won the challenge %q and collected %d from the bet pool. Congratulations!", challengeTitle, netAmount)
	case won:
		body = fmt.Sprintf("You won the challenge %q. Congratulations!", challengeTitle)
	case netAmount < 0:
		body = fmt.Sprintf("The challenge %q has finished. Your bet result: %d.", challengeTitle, netAmount)
	default:
		body = fmt.Sprintf("The challenge %q has finished. Open the app to see the final ranking.", challengeTitle)
	}
	return SendMail(email, subject, body)
}
