package mailingservices

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/techagentng/achat/config"
)

// Mailer sends the account mails whose action links are minted by the identity
// provider.
type Mailer interface {
	SendVerifyEmail(ctx context.Context, to, link string) (string, error)
	SendResetPassword(ctx context.Context, to, link string) (string, error)
}

type Mailgun struct {
	Client *mailgun.MailgunImpl
	From   string
}

func (m *Mailgun) Init(conf *config.Config) {
	m.Client = mailgun.NewMailgun(conf.MgDomain, conf.MailgunApiKey)
	m.From = conf.MgEmailFrom
}

func (m *Mailgun) SendVerifyEmail(ctx context.Context, to, link string) (string, error) {
	subject := "Verify your email"
	body := fmt.Sprintf("Welcome to achat!\n\nFollow this link to verify your email address:\n%s\n\nIf you didn't sign up, you can ignore this email.", link)
	return m.send(ctx, to, subject, body)
}

func (m *Mailgun) SendResetPassword(ctx context.Context, to, link string) (string, error) {
	subject := "Reset your password"
	body := fmt.Sprintf("Follow this link to reset your achat password:\n%s\n\nIf you didn't request a reset, you can ignore this email.", link)
	return m.send(ctx, to, subject, body)
}

func (m *Mailgun) send(ctx context.Context, to, subject, body string) (string, error) {
	message := m.Client.NewMessage(m.From, subject, body, to)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := m.Client.Send(ctx, message)
	return id, err
}
