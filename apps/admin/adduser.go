package main

import (
	"context"
	"fmt"

	"github.com/wisonline/woec/core/user"
)

// addUser creates a user.User after validating it against the password policy.
func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %q (id %d)\n", usr.Role, usr.Username, usr.ID)
	return nil
}
