package sqlxrepos

import (
	"database/sql"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
)

// checkAffected maps an UPDATE or DELETE that touched no row to core.ErrNotFound.
func checkAffected(res sql.Result, err error, op string) error {
	if err != nil {
		return core.NewStorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError(op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// utc stores every timestamp in UTC; sqlite compares them as text.
func utc(t null.Time) null.Time {
	return null.NewTime(t.Time.UTC(), t.Valid)
}
