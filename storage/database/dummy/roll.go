package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/roll"
)

type rollRepository struct {
	db *rollTable
}

var _ roll.Repository = (*rollRepository)(nil) // interface compliance check

func NewRollRepository(db *DB) roll.Repository {
	return &rollRepository{db: db.roll}
}

func (repo *rollRepository) CreateRoll(_ context.Context, rl roll.Roll, _ ...core.DBExecutor) (roll.Roll, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	rl.ID = repo.db.pkCount
	if rl.CompletedAt.Valid {
		rl.CompletedAt.Time = rl.CompletedAt.Time.UTC()
	}
	repo.db.table[rl.ID] = &rl
	return rl, nil
}

func (repo *rollRepository) CreateStudentRollStates(_ context.Context, states []roll.StudentRollState, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range states {
		repo.db.statePKCount++
		s.ID = repo.db.statePKCount
		repo.db.states[s.ID] = &s
	}
	return nil
}

func (repo *rollRepository) QueryRollIDsCompletedAfter(_ context.Context, t time.Time, _ ...core.DBExecutor) ([]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]int, 0)
	for id, rl := range repo.db.table {
		if rl.CompletedAt.Valid && rl.CompletedAt.Time.After(t) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *rollRepository) QueryStudentRollStates(_ context.Context, rollIDs []int, states []string, _ ...core.DBExecutor) ([]roll.StudentRollState, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inRolls := make(map[int]bool, len(rollIDs))
	for _, id := range rollIDs {
		inRolls[id] = true
	}
	inStates := make(map[string]bool, len(states))
	for _, s := range states {
		inStates[s] = true
	}

	rollStates := make([]roll.StudentRollState, 0)
	for _, s := range repo.db.states {
		if inRolls[s.RollID] && inStates[s.State] {
			rollStates = append(rollStates, *s)
		}
	}
	sort.Slice(rollStates, func(i, j int) bool { return rollStates[i].ID < rollStates[j].ID })
	return rollStates, nil
}
