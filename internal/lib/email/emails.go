package email

import "context"

// SendWelcomeEmail greets an identity created through the admin API.
func (c *Client) SendWelcomeEmail(ctx context.Context, to, firstName, username string) error {
	return c.SendEmail(ctx, to, "Welcome to ITM Space", TemplateWelcome, map[string]string{
		"UserFirstName": firstName,
		"Username":      username,
	})
}
