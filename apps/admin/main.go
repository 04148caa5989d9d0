package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/services/lock"
	logsvc "github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/storage/database"
	sqlxrepos "github.com/trezcool/rollcall/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// the API may be running the group filters at the same time: share its lock when possible
	locker, closeLocker, err := newLocker(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal("connecting to redis", err)
	}

	// start CLI
	cli := commandLine{
		conf: conf,
		db:   db,
		out:  os.Stdout,
		grpSvc: group.NewService(group.ServiceDeps{
			Conf:     conf,
			Logger:   logger,
			Tx:       database.NewTransactor(db),
			Repo:     sqlxrepos.NewGroupRepository(db),
			RollRepo: sqlxrepos.NewRollRepository(db),
			Locker:   locker,
		}),
	}
	err = cli.run(os.Args)
	closeLocker()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

// newLocker returns the job locker and a func releasing its connection.
// os.Exit skips deferred calls: the caller closes it explicitly.
func newLocker(ctx context.Context, conf *core.Config, logger core.Logger) (group.Locker, func(), error) {
	if !conf.Redis.Enabled {
		return lock.NewLocal(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedis(client, logger), func() { _ = client.Close() }, nil
}
