package group

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/roll"
)

// RunFiltersLockKey guards RunFilters against overlapping runs.
const RunFiltersLockKey = "rollcall:jobs:group-filters"

// mockable
var nowFunc = time.Now

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		QueryGroups(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (Group, error)
		// UpdateGroup saves the user-managed fields of grp. run_at & student_count are left untouched.
		UpdateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		UpdateGroupRunInfo(ctx context.Context, id int, runAt time.Time, studentCount int, exec ...core.DBExecutor) error
		DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error

		// QueryMemberships returns the memberships of the given group, or of all groups when groupID is 0.
		QueryMemberships(ctx context.Context, groupID int, exec ...core.DBExecutor) ([]Membership, error)
		// ReplaceMemberships deletes every membership of the given group then inserts `members`.
		ReplaceMemberships(ctx context.Context, groupID int, members []Membership, exec ...core.DBExecutor) error
		// DeleteOrphanMemberships deletes the memberships whose group does not exist anymore.
		DeleteOrphanMemberships(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	// Locker hands out named, expiring locks.
	// Lock returns core.ErrLocked when the lock is held by someone else.
	Locker interface {
		Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	}

	RunObserver interface {
		ObserveRun(report RunReport, err error)
	}

	Service interface {
		Create(ctx context.Context, ng NewGroup) (Group, error)
		Query(ctx context.Context, ordering []core.DBOrdering) ([]Group, error)
		GetByID(ctx context.Context, id int) (Group, error)
		Update(ctx context.Context, orig Group, ug UpdateGroup) (Group, error)
		Delete(ctx context.Context, id int) error
		// Students returns the live, unaggregated roll states matching the filter of a Group.
		Students(ctx context.Context, id int) ([]roll.StudentRollState, error)
		// Members returns the memberships of a Group as of the last filter run.
		Members(ctx context.Context, id int) ([]Membership, error)
		// RunFilters recomputes the memberships of every Group.
		RunFilters(ctx context.Context) (RunReport, error)
	}

	ServiceDeps struct {
		Conf     *core.Config
		Logger   core.Logger
		Tx       core.Transactor
		Repo     Repository
		RollRepo roll.Repository
		Locker   Locker
		Observer RunObserver // optional
	}

	service struct {
		conf     *core.Config
		log      core.Logger
		tx       core.Transactor
		repo     Repository
		rollRepo roll.Repository
		locker   Locker
		observer RunObserver
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps ServiceDeps) Service {
	return &service{
		conf:     deps.Conf,
		log:      deps.Logger,
		tx:       deps.Tx,
		repo:     deps.Repo,
		rollRepo: deps.RollRepo,
		locker:   deps.Locker,
		observer: deps.Observer,
	}
}

func (svc *service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	grp := Group{
		Name:          ng.Name,
		NumberOfWeeks: ng.NumberOfWeeks,
		RollStates:    ng.RollStates,
		Incidents:     ng.Incidents,
		LTMT:          ng.LTMT,
	}
	return svc.repo.CreateGroup(ctx, grp)
}

func (svc *service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Group, error) {
	ordering, err := CleanOrdering(ordering)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryGroups(ctx, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

// Update expects `ug` to be validated against `orig`.
func (svc *service) Update(ctx context.Context, orig Group, ug UpdateGroup) (Group, error) {
	return svc.repo.UpdateGroup(ctx, ug.apply(orig))
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.ReplaceMemberships(ctx, id, nil, exec); err != nil {
			return err
		}
		return svc.repo.DeleteGroup(ctx, id, exec)
	})
}

func (svc *service) Students(ctx context.Context, id int) ([]roll.StudentRollState, error) {
	grp, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.matches(ctx, grp, nowFunc())
}

func (svc *service) Members(ctx context.Context, id int) ([]Membership, error) {
	if _, err := svc.repo.GetGroup(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QueryMemberships(ctx, id)
}

// matches returns the roll states of the rolls completed in the lookback window of `grp`
// having one of its roll states.
func (svc *service) matches(ctx context.Context, grp Group, now time.Time, exec ...core.DBExecutor) ([]roll.StudentRollState, error) {
	rollIDs, err := svc.rollRepo.QueryRollIDsCompletedAfter(ctx, Cutoff(now, grp.NumberOfWeeks), exec...)
	if err != nil {
		return nil, err
	}
	if len(rollIDs) == 0 {
		return []roll.StudentRollState{}, nil
	}
	states, err := svc.rollRepo.QueryStudentRollStates(ctx, rollIDs, grp.RollStates, exec...)
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (svc *service) RunFilters(ctx context.Context) (report RunReport, err error) {
	unlock, err := svc.locker.Lock(ctx, RunFiltersLockKey, svc.conf.Jobs.LockTTL)
	if err != nil {
		return RunReport{}, err
	}
	defer unlock()

	now := nowFunc().UTC()
	report = RunReport{RunID: uuid.New().String(), StartedAt: now}
	defer func() {
		if svc.observer != nil {
			svc.observer.ObserveRun(report, err)
		}
	}()

	orphans, err := svc.repo.DeleteOrphanMemberships(ctx)
	if err != nil {
		return report, err
	}

	groups, err := svc.repo.QueryGroups(ctx, nil)
	if err != nil {
		return report, err
	}

	report.Groups = make([]GroupOutcome, len(groups))
	limit := svc.conf.Jobs.GroupFilterConcurrency
	if limit < 1 {
		limit = 1
	}
	var eg errgroup.Group
	eg.SetLimit(limit)
	for i, grp := range groups {
		i, grp := i, grp
		eg.Go(func() error {
			report.Groups[i] = svc.runFilter(ctx, grp, now)
			return nil
		})
	}
	_ = eg.Wait()

	if report.Memberships, err = svc.repo.QueryMemberships(ctx, 0); err != nil {
		return report, err
	}
	report.FinishedAt = nowFunc().UTC()

	failed := report.Failed()
	svc.log.Info("group filters run", map[string]interface{}{
		"run_id":          report.RunID,
		"groups":          len(report.Groups),
		"failed":          len(failed),
		"memberships":     len(report.Memberships),
		"orphans_deleted": orphans,
		"duration":        report.Duration().String(),
	})
	return report, nil
}

// runFilter rewrites the memberships & run info of `grp` in a single transaction.
func (svc *service) runFilter(ctx context.Context, grp Group, now time.Time) GroupOutcome {
	out := GroupOutcome{GroupID: grp.ID, GroupName: grp.Name}

	var tallied, members int
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		states, err := svc.matches(ctx, grp, now, exec)
		if err != nil {
			return err
		}
		counts := Tally(states)
		mbs := Memberships(grp, counts)

		if err = svc.repo.ReplaceMemberships(ctx, grp.ID, mbs, exec); err != nil {
			return errors.Wrap(err, "replacing memberships")
		}
		if err = svc.repo.UpdateGroupRunInfo(ctx, grp.ID, now, len(counts), exec); err != nil {
			return err
		}
		tallied, members = len(counts), len(mbs)
		return nil
	})
	if err != nil {
		out.Err = err
		out.Error = err.Error()
		svc.log.Error("running group filter", err, map[string]interface{}{"group_id": grp.ID})
		return out
	}

	out.StudentsTallied = tallied
	out.Members = members
	return out
}
