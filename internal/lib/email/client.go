// Package email renders the embedded HTML templates and delivers them
// through Resend.
package email

import (
	"bytes"
	"context"
	"embed"
	"html/template"

	"github.com/deppfellow/backend-resources/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Template names an HTML file under templates/.
type Template string

const (
	TemplateWelcome Template = "welcome"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Client struct {
	client *resend.Client
	from   string
	logger *zerolog.Logger
}

// NewClient returns a client that sends as cfg.EmailFrom. Without an API key
// the client renders but skips delivery.
func NewClient(cfg config.IntegrationConfig, logger *zerolog.Logger) *Client {
	c := &Client{
		from:   cfg.EmailFrom,
		logger: logger,
	}
	if cfg.ResendAPIKey != "" {
		c.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return c
}

// Render executes the named template with data.
func Render(name Template, data map[string]string) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(name)+".html", data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}

func (c *Client) SendEmail(ctx context.Context, to, subject string, name Template, data map[string]string) error {
	html, err := Render(name, data)
	if err != nil {
		return err
	}

	if c.client == nil {
		c.logger.Warn().
			Str("template", string(name)).
			Msg("email delivery disabled, no resend api key configured")
		return nil
	}

	sent, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to send %s email", name)
	}

	c.logger.Debug().
		Str("template", string(name)).
		Str("email_id", sent.Id).
		Msg("email sent")

	return nil
}
