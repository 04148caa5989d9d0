package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/rollcall/storage/database"
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	provider, err := database.NewMigrator(cli.db)
	if err != nil {
		return err
	}

	var results []*goose.MigrationResult
	switch command := args[0]; command {
	case "up":
		results, err = provider.Up(ctx)
	case "up-by-one":
		results, err = one(provider.UpByOne(ctx))
	case "up-to", "down-to":
		if len(args) < 2 {
			return errors.Errorf("%s must be of form: admin migrate %s VERSION", command, command)
		}
		version, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			return errors.Errorf("version must be a number (got '%s')", args[1])
		}
		if command == "up-to" {
			results, err = provider.UpTo(ctx, version)
		} else {
			results, err = provider.DownTo(ctx, version)
		}
	case "down":
		results, err = one(provider.Down(ctx))
	case "redo":
		if results, err = one(provider.Down(ctx)); err == nil {
			var up []*goose.MigrationResult
			up, err = one(provider.UpByOne(ctx))
			results = append(results, up...)
		}
	case "reset":
		results, err = provider.DownTo(ctx, 0)
	case "status":
		return cli.migrationStatus(ctx, provider)
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return errors.Wrap(err, "getting database version")
		}
		fmt.Fprintf(cli.out, "version %d\n", version)
		return nil
	default:
		return errors.Errorf("%q: no such command", command)
	}

	for _, res := range results {
		fmt.Fprintf(cli.out, "%-4s %s (%s)\n", res.Direction, res.Source.Path, res.Duration)
	}
	if err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

func (cli *commandLine) migrationStatus(ctx context.Context, provider *goose.Provider) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return errors.Wrap(err, "getting migrations status")
	}
	for _, st := range statuses {
		appliedAt := "Pending"
		if st.State == goose.StateApplied {
			appliedAt = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(cli.out, "%-20s %s\n", appliedAt, st.Source.Path)
	}
	return nil
}

func one(res *goose.MigrationResult, err error) ([]*goose.MigrationResult, error) {
	if res == nil {
		return nil, err
	}
	return []*goose.MigrationResult{res}, err
}
