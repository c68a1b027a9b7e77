package user

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wisonline/woec/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CreateUser returns ErrUsernameExists if the username is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUserPassword(ctx context.Context, id int, hash []byte) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	usr := User{
		Username:  nu.Username,
		Role:      nu.Role,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if errors.Is(err, ErrUsernameExists) {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
	}
	return usr, err
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// ChangePassword validates pc against the password policy and stores the new hash.
func (svc *Service) ChangePassword(ctx context.Context, pc PasswordChange) (User, error) {
	if err := pc.Validate(svc.validate); err != nil {
		return User{}, err
	}
	usr := pc.User
	if err := usr.SetPassword(pc.Password); err != nil {
		return User{}, err
	}
	if err := svc.repo.UpdateUserPassword(ctx, usr.ID, usr.PasswordHash); err != nil {
		return User{}, err
	}
	return usr, nil
}
