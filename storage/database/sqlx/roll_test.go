package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core/roll"
	"github.com/trezcool/rollcall/testutil"
)

func TestRollRepository_QueryRollIDsCompletedAfter(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewRollRepository(db)

	cutoff := time.Now().UTC().AddDate(0, 0, -14)
	loc := time.FixedZone("UTC-5", -5*60*60)

	recent := testutil.CreateRoll(t, repo, "recent", testutil.DaysAgo(3))
	// stored in UTC whatever the zone it is created with
	local := testutil.CreateRoll(t, repo, "local", null.TimeFrom(cutoff.Add(time.Hour).In(loc)))
	testutil.CreateRoll(t, repo, "old", testutil.DaysAgo(20))
	testutil.CreateRoll(t, repo, "at cutoff", null.TimeFrom(cutoff))
	testutil.CreateRoll(t, repo, "pending", null.Time{})

	ids, err := repo.QueryRollIDsCompletedAfter(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int{recent.ID, local.ID}, ids)

	ids, err = repo.QueryRollIDsCompletedAfter(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRollRepository_QueryStudentRollStates(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewRollRepository(db)
	ctx := context.Background()

	r1 := testutil.CreateRoll(t, repo, "r1", testutil.DaysAgo(1))
	r2 := testutil.CreateRoll(t, repo, "r2", testutil.DaysAgo(2))
	r3 := testutil.CreateRoll(t, repo, "r3", testutil.DaysAgo(3))

	testutil.Mark(t, repo, r1, roll.StateLate, 1, 2)
	testutil.Mark(t, repo, r1, roll.StatePresent, 3)
	testutil.Mark(t, repo, r2, roll.StateAbsent, 1)
	testutil.Mark(t, repo, r3, roll.StateLate, 3)

	states, err := repo.QueryStudentRollStates(ctx, []int{r1.ID, r2.ID}, []string{roll.StateLate, roll.StateAbsent})
	require.NoError(t, err)
	require.Len(t, states, 3)
	for _, s := range states {
		assert.Contains(t, []int{r1.ID, r2.ID}, s.RollID)
		assert.Contains(t, []string{roll.StateLate, roll.StateAbsent}, s.State)
	}

	states, err = repo.QueryStudentRollStates(ctx, nil, []string{roll.StateLate})
	require.NoError(t, err)
	assert.Empty(t, states)

	states, err = repo.QueryStudentRollStates(ctx, []int{r1.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, states)
}
