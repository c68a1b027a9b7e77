package emailsvc

import (
	"github.com/wisonline/woec/core"
)

// NewService returns the EmailService of the configured provider.
func NewService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Email.Provider {
	case "sendgrid":
		return NewSendgridService(conf)
	case "brevo":
		return NewBrevoService(conf)
	default:
		return NewConsoleService(conf, logger)
	}
}
