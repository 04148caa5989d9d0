package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/core/roll"
	"github.com/trezcool/rollcall/storage/database"
)

// NewConfig returns the app config pointed at a throwaway sqlite database.
func NewConfig(t *testing.T) *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.Server.DisableReqLogs = true
	conf.Database.Engine = "sqlite"
	conf.Database.Path = filepath.Join(t.TempDir(), "rollcall.db")
	conf.Jobs.GroupFilterConcurrency = 4
	conf.Jobs.LockTTL = time.Minute
	return conf
}

// PrepareDB opens a migrated sqlite database living for the duration of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "rollcall.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// DaysAgo returns the (valid) instant `days` days before now.
func DaysAgo(days int) null.Time {
	return null.TimeFrom(time.Now().UTC().AddDate(0, 0, -days))
}

func CreateGroup(
	t *testing.T,
	repo group.Repository,
	name string,
	weeks int,
	states string,
	incidents int,
	ltmt group.Comparator,
) group.Group {
	grp, err := repo.CreateGroup(context.Background(), group.Group{
		Name:          name,
		NumberOfWeeks: weeks,
		RollStates:    group.ParseRollStates(states),
		Incidents:     incidents,
		LTMT:          ltmt,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

func CreateRoll(t *testing.T, repo roll.Repository, name string, completedAt null.Time) roll.Roll {
	rl, err := repo.CreateRoll(context.Background(), roll.Roll{Name: name, CompletedAt: completedAt})
	if err != nil {
		t.Fatalf("CreateRoll() failed: %v", err)
	}
	return rl
}

// Mark records `state` for every student of `studentIDs` on `rl`.
func Mark(t *testing.T, repo roll.Repository, rl roll.Roll, state string, studentIDs ...int) {
	states := make([]roll.StudentRollState, 0, len(studentIDs))
	for _, id := range studentIDs {
		states = append(states, roll.StudentRollState{RollID: rl.ID, StudentID: id, State: state})
	}
	if err := repo.CreateStudentRollStates(context.Background(), states); err != nil {
		t.Fatalf("Mark() failed: %v", err)
	}
}
