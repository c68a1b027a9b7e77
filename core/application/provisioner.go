package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/user"
)

// Credentials are the plaintext login details of a freshly provisioned account.
// They only ever leave the process in the welcome email.
type Credentials struct {
	Username string
	Password string
}

// Provisioner creates student accounts for approved applications.
type Provisioner struct {
	users    user.Repository
	logger   core.Logger
	attempts int

	generateUsername func(firstName, lastName string) (string, error)
	generatePassword func() (string, error)
	nowFunc          func() time.Time
}

func NewProvisioner(users user.Repository, conf *core.Config, logger core.Logger) *Provisioner {
	attempts := conf.Enrollment.UsernameAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Provisioner{
		users:            users,
		logger:           logger,
		attempts:         attempts,
		generateUsername: user.GenerateUsername,
		generatePassword: user.GeneratePassword,
		nowFunc:          time.Now,
	}
}

// Provision creates a student User for app with the given credentials.
// It fails with user.ErrUsernameExists if the username is taken.
func (p *Provisioner) Provision(ctx context.Context, app Application, username, password string) (user.User, error) {
	usr := user.User{
		Username:  username,
		Role:      user.RoleStudent,
		Email:     app.Email,
		FirstName: app.FirstName,
		LastName:  app.LastName,
		CreatedAt: p.nowFunc().UTC(),
	}
	if err := usr.SetPassword(password); err != nil {
		return user.User{}, err
	}
	return p.users.CreateUser(ctx, usr)
}

// ProvisionStudent generates credentials for app and provisions the account,
// drawing a new username on each collision.
func (p *Provisioner) ProvisionStudent(ctx context.Context, app Application) (user.User, Credentials, error) {
	password, err := p.generatePassword()
	if err != nil {
		return user.User{}, Credentials{}, err
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		username, err := p.generateUsername(app.FirstName, app.LastName)
		if err != nil {
			return user.User{}, Credentials{}, err
		}

		usr, err := p.Provision(ctx, app, username, password)
		switch {
		case err == nil:
			return usr, Credentials{Username: usr.Username, Password: password}, nil
		case errors.Is(err, user.ErrUsernameExists):
			p.logger.Warn("generated username taken", map[string]interface{}{"username": username, "attempt": attempt})
		default:
			return user.User{}, Credentials{}, err
		}
	}
	return user.User{}, Credentials{}, errors.Wrapf(user.ErrUsernameExists, "no free username after %d attempts", p.attempts)
}
