package application

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/wisonline/woec/core"
)

const (
	welcomeTemplate   = "welcome"
	rejectionTemplate = "rejection"

	previewUsername = "[username]"
	previewPassword = "[password]"
)

type (
	welcomeData struct {
		FirstName string
		Username  string
		Password  string
	}

	rejectionData struct {
		FirstName string
		Reason    string
	}

	// Notifier tells applicants about decisions on their application.
	Notifier struct {
		mailSvc       core.EmailService
		retrier       core.EmailRetrier // optional
		logger        core.Logger
		timeout       time.Duration
		defaultReason string
	}
)

func NewNotifier(mailSvc core.EmailService, retrier core.EmailRetrier, conf *core.Config, logger core.Logger) *Notifier {
	return &Notifier{
		mailSvc:       mailSvc,
		retrier:       retrier,
		logger:        logger,
		timeout:       conf.Email.SendTimeout,
		defaultReason: conf.Enrollment.DefaultRejectionReason,
	}
}

func recipient(app Application) []mail.Address {
	return []mail.Address{{Name: app.FirstName + " " + app.LastName, Address: app.Email}}
}

// WelcomeMessage builds the approval email carrying the account credentials.
func WelcomeMessage(app Application, username, password string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           recipient(app),
		Subject:      "Welcome to Wis Online English Course - Your Account Details",
		TemplateName: welcomeTemplate,
		TemplateData: welcomeData{FirstName: app.FirstName, Username: username, Password: password},
	}
}

// RejectionMessage builds the rejection email stating reason.
func RejectionMessage(app Application, reason string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           recipient(app),
		Subject:      "Wis Online English Course - Application Status",
		TemplateName: rejectionTemplate,
		TemplateData: rejectionData{FirstName: app.FirstName, Reason: reason},
	}
}

// RejectionReason returns reason, or the default one when it is blank.
func (n *Notifier) RejectionReason(reason string) string {
	if reason = core.CleanString(reason); reason == "" {
		return n.defaultReason
	}
	return reason
}

func (n *Notifier) SendWelcome(ctx context.Context, app Application, creds Credentials) error {
	return n.send(ctx, WelcomeMessage(app, creds.Username, creds.Password))
}

func (n *Notifier) SendRejection(ctx context.Context, app Application, reason string) error {
	return n.send(ctx, RejectionMessage(app, n.RejectionReason(reason)))
}

// Preview renders the message sent on a transition to status, without sending it.
func (n *Notifier) Preview(app Application, status Status, reason string) (*core.EmailMessage, error) {
	var msg *core.EmailMessage
	switch status {
	case StatusApproved:
		msg = WelcomeMessage(app, previewUsername, previewPassword)
	case StatusRejected:
		msg = RejectionMessage(app, n.RejectionReason(reason))
	default:
		return nil, errors.Errorf("no email is sent for status %q", status)
	}
	if err := msg.Render(); err != nil {
		return nil, errors.Wrap(err, "rendering preview")
	}
	return msg, nil
}

// send delivers msg within the configured timeout. On failure, msg is handed to the
// retrier and an error wrapping core.ErrEmailDelivery is returned.
func (n *Notifier) send(ctx context.Context, msg *core.EmailMessage) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	err := n.mailSvc.Send(ctx, msg)
	if err == nil {
		return nil
	}

	n.logger.Error("sending "+msg.TemplateName+" email", err, map[string]interface{}{"to": msg.To[0].Address})
	if n.retrier != nil {
		n.retrier.Retry(msg)
	}
	return errors.Wrapf(core.ErrEmailDelivery, "%s email: %v", msg.TemplateName, err)
}
