package roll

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
)

// States a student can be marked with during a roll call.
const (
	StateUnmark  = "unmark"
	StatePresent = "present"
	StateAbsent  = "absent"
	StateLate    = "late"
)

var AllStates = []string{StateUnmark, StatePresent, StateAbsent, StateLate}

func IsValidState(state string) bool {
	for _, s := range AllStates {
		if s == state {
			return true
		}
	}
	return false
}

// Roll is a single attendance-taking session.
type Roll struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
}

// StudentRollState is one student's recorded outcome for one Roll.
type StudentRollState struct {
	ID        int    `json:"id" db:"id"`
	RollID    int    `json:"roll_id" db:"roll_id"`
	StudentID int    `json:"student_id" db:"student_id"`
	State     string `json:"state" db:"state"`
}

// Repository gives read access to rolls & roll states.
// the attendance app owns these records; the Create* methods exist for seeding.
type Repository interface {
	CreateRoll(ctx context.Context, rl Roll, exec ...core.DBExecutor) (Roll, error)
	CreateStudentRollStates(ctx context.Context, states []StudentRollState, exec ...core.DBExecutor) error
	// QueryRollIDsCompletedAfter returns the IDs of the rolls completed strictly after `t`.
	// rolls that were never completed are excluded.
	QueryRollIDsCompletedAfter(ctx context.Context, t time.Time, exec ...core.DBExecutor) ([]int, error)
	// QueryStudentRollStates returns every roll state of the given rolls with one of the given states.
	QueryStudentRollStates(ctx context.Context, rollIDs []int, states []string, exec ...core.DBExecutor) ([]StudentRollState, error)
}
