package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/roll"
)

type rollRepository struct {
	exec core.DBExecutor
}

var _ roll.Repository = (*rollRepository)(nil) // interface compliance check

func NewRollRepository(exec core.DBExecutor) *rollRepository {
	return &rollRepository{exec: exec}
}

func (repo rollRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo rollRepository) CreateRoll(ctx context.Context, rl roll.Roll, exec ...core.DBExecutor) (roll.Roll, error) {
	ex := repo.getExec(exec)
	rl.CompletedAt = utc(rl.CompletedAt)
	q := ex.Rebind(`INSERT INTO rolls (name, completed_at) VALUES (?, ?) RETURNING id`)
	if err := sqlx.GetContext(ctx, ex, &rl.ID, q, rl.Name, rl.CompletedAt); err != nil {
		return roll.Roll{}, core.NewStorageError("inserting roll", err)
	}
	return rl, nil
}

func (repo rollRepository) CreateStudentRollStates(ctx context.Context, states []roll.StudentRollState, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := `INSERT INTO student_roll_states (roll_id, student_id, state) VALUES (:roll_id, :student_id, :state)`
	for start := 0; start < len(states); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(states) {
			end = len(states)
		}
		if _, err := sqlx.NamedExecContext(ctx, ex, q, states[start:end]); err != nil {
			return core.NewStorageError("inserting student roll states", err)
		}
	}
	return nil
}

func (repo rollRepository) QueryRollIDsCompletedAfter(ctx context.Context, t time.Time, exec ...core.DBExecutor) ([]int, error) {
	ex := repo.getExec(exec)
	ids := make([]int, 0)
	q := ex.Rebind(`SELECT id FROM rolls WHERE completed_at IS NOT NULL AND completed_at > ? ORDER BY id`)
	if err := sqlx.SelectContext(ctx, ex, &ids, q, t.UTC()); err != nil {
		return nil, core.NewStorageError("querying rolls", err)
	}
	return ids, nil
}

func (repo rollRepository) QueryStudentRollStates(ctx context.Context, rollIDs []int, states []string, exec ...core.DBExecutor) ([]roll.StudentRollState, error) {
	if len(rollIDs) == 0 || len(states) == 0 {
		return []roll.StudentRollState{}, nil
	}

	ex := repo.getExec(exec)
	q, args, err := sqlx.In(
		`SELECT id, roll_id, student_id, state FROM student_roll_states WHERE roll_id IN (?) AND state IN (?) ORDER BY id`,
		rollIDs, states,
	)
	if err != nil {
		return nil, core.NewStorageError("building student roll states query", err)
	}

	rollStates := make([]roll.StudentRollState, 0)
	if err = sqlx.SelectContext(ctx, ex, &rollStates, ex.Rebind(q), args...); err != nil {
		return nil, core.NewStorageError("querying student roll states", err)
	}
	return rollStates, nil
}
