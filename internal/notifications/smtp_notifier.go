package notifications

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// base URL embedded in the verification link
	PublicBaseURL string
}

type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	base   string
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		base:   cfg.PublicBaseURL,
	}
}

func (n *SMTPNotifier) SendVerificationMessage(ctx context.Context, in SendVerificationMessageInput) error {
	link := fmt.Sprintf("%s/api/users/verify/%s", n.base, in.VerificationToken)

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", in.Email)
	m.SetHeader("Subject", "Welcome to monoContact")
	m.SetBody("text/plain", fmt.Sprintf("Hello! Please verify your monoContact account by visiting %s", link))
	m.AddAlternative("text/html", fmt.Sprintf(`<h2>Hello!</h2><br/>Please verify your monoContact account by clicking <a href=%q>here</a>!`, link))

	// gomail has no context support; honour cancellation before dialing
	if err := ctx.Err(); err != nil {
		return err
	}

	return n.dialer.DialAndSend(m)
}
