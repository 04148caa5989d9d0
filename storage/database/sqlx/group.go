package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

const (
	groupColumns      = `id, name, number_of_weeks, roll_states, incidents, ltmt, run_at, student_count`
	membershipColumns = `id, group_id, student_id, incident_count`

	// rows per multi-row INSERT, keeps the bind vars under the sqlite & postgres limits
	insertBatchSize = 500
)

type groupRepository struct {
	exec core.DBExecutor
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) *groupRepository {
	return &groupRepository{exec: exec}
}

func (repo groupRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps sql "no rows" err to core.ErrNotFound
func (repo groupRepository) trapNoRowsErr(err error, op string) error {
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	return core.NewStorageError(op, err)
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`INSERT INTO "groups" (name, number_of_weeks, roll_states, incidents, ltmt, student_count)
		VALUES (?, ?, ?, ?, ?, 0) RETURNING id`)

	grp.RunAt = null.Time{}
	grp.StudentCount = 0
	if err := sqlx.GetContext(ctx, ex, &grp.ID, q, grp.Name, grp.NumberOfWeeks, grp.RollStates, grp.Incidents, grp.LTMT); err != nil {
		return group.Group{}, core.NewStorageError("inserting group", err)
	}
	return grp, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]group.Group, error) {
	orderBy := "id ASC"
	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			clauses = append(clauses, ord.String())
		}
		orderBy = strings.Join(clauses, ", ")
	}

	groups := make([]group.Group, 0)
	q := `SELECT ` + groupColumns + ` FROM "groups" ORDER BY ` + orderBy
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &groups, q); err != nil {
		return nil, core.NewStorageError("querying groups", err)
	}
	return groups, nil
}

func (repo groupRepository) GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (group.Group, error) {
	ex := repo.getExec(exec)
	var grp group.Group
	q := ex.Rebind(`SELECT ` + groupColumns + ` FROM "groups" WHERE id = ?`)
	if err := sqlx.GetContext(ctx, ex, &grp, q, id); err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "getting group")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	ex := repo.getExec(exec)
	q := ex.Rebind(`UPDATE "groups" SET name = ?, number_of_weeks = ?, roll_states = ?, incidents = ?, ltmt = ? WHERE id = ?`)
	res, err := ex.ExecContext(ctx, q, grp.Name, grp.NumberOfWeeks, grp.RollStates, grp.Incidents, grp.LTMT, grp.ID)
	if err = checkAffected(res, err, "updating group"); err != nil {
		return group.Group{}, err
	}
	return repo.GetGroup(ctx, grp.ID, ex)
}

func (repo groupRepository) UpdateGroupRunInfo(ctx context.Context, id int, runAt time.Time, studentCount int, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind(`UPDATE "groups" SET run_at = ?, student_count = ? WHERE id = ?`)
	res, err := ex.ExecContext(ctx, q, runAt.UTC(), studentCount, id)
	return checkAffected(res, err, "updating group run info")
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM "groups" WHERE id = ?`), id)
	return checkAffected(res, err, "deleting group")
}

func (repo groupRepository) QueryMemberships(ctx context.Context, groupID int, exec ...core.DBExecutor) ([]group.Membership, error) {
	ex := repo.getExec(exec)
	var (
		q    = `SELECT ` + membershipColumns + ` FROM group_students`
		args []interface{}
	)
	if groupID != 0 {
		q += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	q += ` ORDER BY group_id, student_id`

	members := make([]group.Membership, 0)
	if err := sqlx.SelectContext(ctx, ex, &members, ex.Rebind(q), args...); err != nil {
		return nil, core.NewStorageError("querying memberships", err)
	}
	return members, nil
}

func (repo groupRepository) ReplaceMemberships(ctx context.Context, groupID int, members []group.Membership, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	if _, err := ex.ExecContext(ctx, ex.Rebind(`DELETE FROM group_students WHERE group_id = ?`), groupID); err != nil {
		return core.NewStorageError("deleting memberships", err)
	}

	rows := make([]group.Membership, len(members))
	for i, m := range members {
		m.GroupID = groupID
		rows[i] = m
	}
	q := `INSERT INTO group_students (group_id, student_id, incident_count) VALUES (:group_id, :student_id, :incident_count)`
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := sqlx.NamedExecContext(ctx, ex, q, rows[start:end]); err != nil {
			return core.NewStorageError("inserting memberships", err)
		}
	}
	return nil
}

func (repo groupRepository) DeleteOrphanMemberships(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM group_students WHERE group_id NOT IN (SELECT id FROM "groups")`)
	if err != nil {
		return 0, core.NewStorageError("deleting orphan memberships", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStorageError("deleting orphan memberships", err)
	}
	return int(n), nil
}
