package database_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/storage/database"
	sqlxrepos "github.com/trezcool/rollcall/storage/database/sqlx"
	"github.com/trezcool/rollcall/testutil"
)

func TestMigrator(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	provider, err := database.NewMigrator(db)
	require.NoError(t, err)

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// already up to date
	require.NoError(t, database.Migrate(ctx, db))

	_, err = provider.Down(ctx)
	require.NoError(t, err)
	version, err = provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestTransactor_WithinTx(t *testing.T) {
	db := testutil.PrepareDB(t)
	tx := database.NewTransactor(db)
	repo := sqlxrepos.NewGroupRepository(db)
	ctx := context.Background()
	errBoom := errors.New("boom")

	grp := testutil.CreateGroup(t, repo, "Late comers", 2, "late", 1, group.GreaterThan)

	t.Run("rollback", func(t *testing.T) {
		err := tx.WithinTx(ctx, func(exec core.DBExecutor) error {
			if err := repo.ReplaceMemberships(ctx, grp.ID, []group.Membership{{StudentID: 1, IncidentCount: 2}}, exec); err != nil {
				return err
			}
			return errBoom
		})
		assert.Equal(t, errBoom, errors.Cause(err))

		members, err := repo.QueryMemberships(ctx, grp.ID)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = tx.WithinTx(ctx, func(exec core.DBExecutor) error {
				_ = repo.DeleteGroup(ctx, grp.ID, exec)
				panic("boom")
			})
		})

		_, err := repo.GetGroup(ctx, grp.ID)
		assert.NoError(t, err)
	})

	t.Run("commit", func(t *testing.T) {
		err := tx.WithinTx(ctx, func(exec core.DBExecutor) error {
			return repo.ReplaceMemberships(ctx, grp.ID, []group.Membership{{StudentID: 1, IncidentCount: 2}}, exec)
		})
		require.NoError(t, err)

		members, err := repo.QueryMemberships(ctx, grp.ID)
		require.NoError(t, err)
		assert.Len(t, members, 1)
	})
}
