package emailsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/wisonline/woec/core"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type (
	brevoService struct {
		key        string
		endpoint   string
		from       brevoContact
		subjPrefix string
	}

	brevoContact struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email"`
	}

	brevoMessage struct {
		Sender      brevoContact   `json:"sender"`
		To          []brevoContact `json:"to"`
		Subject     string         `json:"subject"`
		TextContent string         `json:"textContent,omitempty"`
		HTMLContent string         `json:"htmlContent,omitempty"`
	}
)

var _ core.EmailService = (*brevoService)(nil)

// NewBrevoService returns an EmailService backed by the Brevo transactional email API.
func NewBrevoService(conf *core.Config) core.EmailService {
	return &brevoService{
		key:        conf.Email.BrevoAPIKey,
		endpoint:   brevoEndpoint,
		from:       newBrevoContact(conf.DefaultFromEmail()),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func newBrevoContact(addr mail.Address) brevoContact {
	return brevoContact{Name: addr.Name, Email: addr.Address}
}

func (svc *brevoService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := prepareMessage(msg); err != nil {
		return err
	}

	body, err := json.Marshal(svc.prepare(*msg))
	if err != nil {
		return errors.Wrap(err, "encoding brevo message")
	}
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: svc.endpoint,
		Headers: map[string]string{
			"api-key":      svc.key,
			"accept":       "application/json",
			"content-type": "application/json",
		},
		Body: body,
	}

	res, err := rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "brevo request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("brevo status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc *brevoService) prepare(msg core.EmailMessage) brevoMessage {
	to := make([]brevoContact, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, newBrevoContact(addr))
	}
	return brevoMessage{
		Sender:      svc.from,
		To:          to,
		Subject:     svc.subjPrefix + msg.Subject,
		TextContent: msg.TextContent,
		HTMLContent: msg.HTMLContent,
	}
}
