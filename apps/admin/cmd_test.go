package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisonline/woec/core/user"
	inmemdb "github.com/wisonline/woec/storage/database/inmem"
	"github.com/wisonline/woec/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	out := new(bytes.Buffer)
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return &commandLine{
		out:     out,
		usrRepo: repo,
		usrSvc:  user.NewService(repo, testutil.NewValidator()),
	}, out
}

func mockPasswords(t *testing.T, pwds ...string) {
	t.Helper()
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	i := 0
	readPasswordFunc = func(int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		pwd := pwds[i]
		i++
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwds    []string
	wantErr error
}

func (tt cliTest) run(t *testing.T, cli *commandLine) error {
	t.Helper()
	mockPasswords(t, tt.pwds...)
	return cli.run(append([]string{"admin"}, tt.args...))
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, errNoMigrations, err)

	var calls [][]string
	cli.migrate = func(command string, args ...string) error {
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		calls = append(calls, append([]string{command}, args...))
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.run(t, cli))
		})
	}
	assert.Equal(t, [][]string{{"up"}, {"up-to", "2"}, {"status"}}, calls)

	assert.EqualError(t, cli.run([]string{"admin", "migrate", "lol"}), `"lol": no such command`)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	const pwd = "Correct-Horse-42"

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "jdoe", "-email", "jdoe@woec.test"}, wantErr: errHelp},
		{
			name:    "confirmation mismatch",
			args:    []string{"adduser", "-username", "jdoe", "-email", "jdoe@woec.test", "-first", "John", "-last", "Doe"},
			pwds:    []string{pwd, pwd + "!"},
			wantErr: errPwdMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.run(t, cli))
		})
	}

	t.Run("weak password", func(t *testing.T) {
		err := cliTest{
			args: []string{"adduser", "-username", "jdoe", "-email", "jdoe@woec.test", "-first", "John", "-last", "Doe"},
			pwds: []string{"12345678", "12345678"},
		}.run(t, cli)
		var vErrs validator.ValidationErrors
		require.True(t, errors.As(err, &vErrs), "err = %v", err)
	})

	t.Run("admin", func(t *testing.T) {
		out.Reset()
		err := cliTest{
			args: []string{"adduser", "-username", "JDoe", "-email", "JDoe@woec.test", "-first", "John", "-last", "Doe", "-admin"},
			pwds: []string{pwd, pwd},
		}.run(t, cli)
		require.NoError(t, err)
		assert.Contains(t, out.String(), `created admin "jdoe"`)

		usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{Username: "jdoe"})
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin())
		assert.Equal(t, "jdoe@woec.test", usr.Email)
		assert.NoError(t, usr.CheckPassword(pwd))
	})

	t.Run("duplicate", func(t *testing.T) {
		err := cliTest{
			args: []string{"adduser", "-username", "jdoe", "-email", "other@woec.test", "-first", "Jane", "-last", "Doe"},
			pwds: []string{pwd, pwd},
		}.run(t, cli)
		assert.Error(t, err)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "awe", "awe@test.cd", "Old-Passw0rd!", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwds: []string{"New-Passw0rd!", "New-Passw0rd!"}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.run(t, cli))
		})
	}

	for _, uname := range []string{usr.Username, usr.Email} {
		t.Run("reset with "+uname, func(t *testing.T) {
			pwd := "Fresh-" + strings.ToUpper(uname[:2]) + "-pass9"
			require.NoError(t, cliTest{args: []string{"resetpassword", "-username", uname}, pwds: []string{pwd, pwd}}.run(t, cli))

			refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), `created admin "admin"`)
	assert.Contains(t, out.String(), `created student "student"`)

	for _, acct := range demoAccounts {
		usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{Username: acct.Username})
		require.NoError(t, err)
		assert.Equal(t, acct.Role, usr.Role)
		assert.NotEmpty(t, usr.PasswordHash)
	}

	// idempotent
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), `admin "admin" exists, skipped`)
	assert.Contains(t, out.String(), `student "student" exists, skipped`)
}
