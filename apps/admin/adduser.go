package main

import (
	"context"
	"fmt"

	"github.com/thesisapp/thesis/core/user"
)

// addUser creates the login account of a teacher or student.
func (cli *commandLine) addUser(id, email string, role user.Role, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		ID:              id,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf("%s account %s created", usr.Role, usr.ID))
	return nil
}
