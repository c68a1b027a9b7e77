package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/wisonline/woec/core/user"
)

var demoAccounts = []user.User{
	{Username: "admin", Email: "admin@woec.com", FirstName: "Admin", LastName: "User", Role: user.RoleAdmin},
	{Username: "student", Email: "student@woec.com", FirstName: "Student", LastName: "User", Role: user.RoleStudent},
}

// seed creates the demo accounts that do not exist yet, each with a generated password.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	for _, acct := range demoAccounts {
		_, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: acct.Username})
		if err == nil {
			fmt.Fprintf(cli.out, "%s %q exists, skipped\n", acct.Role, acct.Username)
			continue
		}
		if !errors.Is(err, user.ErrNotFound) {
			return errors.Wrapf(err, "finding %q", acct.Username)
		}

		pwd, err := user.GeneratePassword()
		if err != nil {
			return errors.Wrap(err, "generating password")
		}
		usr := acct
		usr.CreatedAt = time.Now().UTC()
		if err = usr.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return errors.Wrapf(err, "creating %q", acct.Username)
		}
		fmt.Fprintf(cli.out, "created %s %q with password %s\n", usr.Role, usr.Username, pwd)
	}
	return nil
}
