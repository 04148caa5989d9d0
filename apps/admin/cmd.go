package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/rollcall/apps/api/echo"
	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	db     *sqlx.DB
	grpSvc group.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [VERSION] - up | up-by-one | up-to VERSION | down | down-to VERSION | redo | reset | status | version")
	fmt.Fprintln(cli.out, "  rungroups - recompute the members of every group")
	fmt.Fprintln(cli.out, "  token -username USERNAME [-id ID] [-email EMAIL] [-admin] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenUname := tokenCmd.String("username", "", "The staff member's username.")
	tokenID := tokenCmd.String("id", "", "The staff member's ID. Defaults to the username.")
	tokenEmail := tokenCmd.String("email", "", "The staff member's email.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Grant admin permissions.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "rungroups":
		return cli.runGroups(ctx)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		person := core.Person{ID: *tokenID, Username: *tokenUname, Email: *tokenEmail}
		if person.ID == "" {
			person.ID = person.Username
		}
		return cli.token(person, *tokenAdmin)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runGroups(ctx context.Context) error {
	report, err := cli.grpSvc.RunFilters(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (cli *commandLine) token(person core.Person, isAdmin bool) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, person, isAdmin))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
