package main

import (
	"context"

	"github.com/wisonline/woec/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.ChangePassword(ctx, user.PasswordChange{User: usr, Password: pwd, PasswordConfirm: pwd})
	return err
}
