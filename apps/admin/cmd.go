package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/talimhq/talim/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  adduser -email EMAIL -first NAME -last NAME [-instructor] - create or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserFirst := addUserCmd.String("first", "", "The user's first name.")
	addUserLast := addUserCmd.String("last", "", "The user's last name.")
	addUserInstructor := addUserCmd.Bool("instructor", false, "Grant the instructor role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserFirst == "" || *addUserLast == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserFirst, *addUserLast, pwd, *addUserInstructor)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
