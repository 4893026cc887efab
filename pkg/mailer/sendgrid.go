// Package mailer delivers transactional e-mail through SendGrid.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("mailer not configured")

// Message is a single outgoing e-mail.
type Message struct {
	ToName      string
	ToAddress   string
	Subject     string
	TextContent string
	HTMLContent string
}

// Config holds the SendGrid credentials and sender identity.
type Config struct {
	APIKey    string
	AppName   string
	FromEmail string
	Host      string
}

// SendGrid sends messages via the SendGrid v3 mail API.
type SendGrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     zerolog.Logger
	api        func(req rest.Request) (*rest.Response, error)
}

// NewSendGrid constructs a sender.
func NewSendGrid(cfg Config, logger zerolog.Logger) *SendGrid {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	prefix := ""
	if cfg.AppName != "" {
		prefix = "[" + cfg.AppName + "] "
	}
	return &SendGrid{
		key:        cfg.APIKey,
		host:       host,
		from:       sgmail.NewEmail(cfg.AppName, cfg.FromEmail),
		subjPrefix: prefix,
		logger:     logger.With().Str("component", "mailer").Logger(),
		api:        sendgrid.API,
	}
}

// Enabled reports whether the sender has credentials.
func (s *SendGrid) Enabled() bool {
	return s != nil && s.key != "" && s.from.Address != ""
}

// Send delivers one message.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.ToAddress) == "" {
		return errors.New("recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := s.api(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("sendgrid rejected message")
		return fmt.Errorf("sending email: status %d", res.StatusCode)
	}
	return nil
}

func (s *SendGrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)

	text := msg.TextContent
	if text == "" {
		text = msg.Subject
	}
	m.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}
