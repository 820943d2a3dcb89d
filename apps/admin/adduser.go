package main

import (
	"context"
	"time"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(email, first, last, pwd string, isInstructor bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		// role is immutable once created; -instructor only matters here
		role := user.RoleStudent
		if isInstructor {
			role = user.RoleInstructor
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	usr.FirstName = core.CleanString(first)
	usr.LastName = core.CleanString(last)
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	active := true
	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
	}
	return err
}
