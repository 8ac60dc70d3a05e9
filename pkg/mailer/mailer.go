package mailer

import (
	"fmt"
	"net/smtp"
)

// Mailer sends verification codes over plain SMTP. Delivery is best-effort:
// callers log failures and carry on, a user can always request a new code.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// New creates a Mailer. An empty host disables sending (Send returns an
// error the caller is expected to log).
func New(host, port, username, password, from string) *Mailer {
	return &Mailer{host: host, port: port, username: username, password: password, from: from}
}

// SendOTP emails a verification code to the given address.
func (m *Mailer) SendOTP(to, code string) error {
	if m.host == "" {
		return fmt.Errorf("smtp not configured")
	}

	body := fmt.Sprintf(`<div style="font-family: sans-serif; padding: 20px; background: #f3f4f6;">
  <div style="background: white; padding: 24px; border-radius: 8px;">
    <h2 style="color: #2563EB;">Verify Your Account</h2>
    <p>Welcome to Ideate! Use the code below to verify your email.</p>
    <h1 style="background: #e0e7ff; color: #1e40af; padding: 10px; text-align: center; letter-spacing: 5px; border-radius: 8px;">%s</h1>
    <p style="color: #6b7280; font-size: 12px;">This code expires in 10 minutes.</p>
  </div>
</div>`, code)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your Ideate Verification Code\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, body)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(msg))
}
