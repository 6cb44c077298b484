// Package mail delivers password-reset codes over SMTP. Delivery is
// best-effort by contract: callers log failures and carry on.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"staffhub.org/internal/obs"
)

// Config carries the SMTP settings fixed at startup.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Client sends transactional mail through one SMTP endpoint.
type Client struct {
	client *gomail.Client
	from   string
}

// New builds the SMTP client. A missing host or sender is a startup error.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail: sender address is required")
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: build client: %w", err)
	}
	return &Client{client: client, from: cfg.From}, nil
}

// SendPasswordResetOTP mails the reset code to the user.
func (c *Client) SendPasswordResetOTP(ctx context.Context, to, otp string) error {
	msg := gomail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return fmt.Errorf("mail: sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: recipient address: %w", err)
	}
	msg.Subject("Password reset code")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Your password reset code is %s.\n\nIt expires in one hour. If you did not request a reset, ignore this message.\n", otp))

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		obs.CountMailFailure()
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}
