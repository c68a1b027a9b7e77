package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/core/user"
)

// NewConfig returns the configuration used by tests: in-memory storage, no retries.
func NewConfig() *core.Config {
	_ = os.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.Debug = false
	if os.Getenv("TEST_DATABASE_ENGINE") == "" {
		conf.Database.Engine = "memory"
	}
	conf.Email.Provider = "console"
	conf.Email.SendTimeout = time.Second
	conf.Email.RetryAttempts = 0
	conf.RateLimit.RedisURL = ""
	return conf
}

// SkipUnlessPostgres skips tests needing a live database unless TEST_DATABASE_ENGINE=postgres.
func SkipUnlessPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_ENGINE") != "postgres" {
		t.Skip("set TEST_DATABASE_ENGINE=postgres to run database tests")
	}
}

func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd, role string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		FirstName: "Test",
		LastName:  "User",
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateApplication(
	t *testing.T,
	repo application.Repository,
	firstName, lastName, email string,
	courseID int,
	createdAt ...time.Time,
) application.Application {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	app, err := repo.CreateApplication(context.Background(), application.Application{
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		Country:    "Spain",
		CourseID:   courseID,
		Motivation: "I want fluency for work",
		Status:     application.StatusPending,
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("createApplication() failed: %v", err)
	}
	return app
}
