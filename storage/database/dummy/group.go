package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

type groupRepository struct {
	db *groupTable
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db.group}
}

func (repo *groupRepository) query() []group.Group {
	groups := make([]group.Group, 0, len(repo.db.table))
	for _, g := range repo.db.table {
		groups = append(groups, *g)
	}
	return groups
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	grp.ID = repo.db.pkCount
	grp.RunAt = null.Time{}
	grp.StudentCount = 0
	repo.db.table[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) QueryGroups(_ context.Context, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := repo.query()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareGroups(groups[i], groups[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTimes(a, b null.Time) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	switch {
	case a.Time.Before(b.Time):
		return -1
	case a.Time.After(b.Time):
		return 1
	default:
		return 0
	}
}

func compareGroups(a, b group.Group, field string) int {
	switch field {
	case "id":
		return compareInts(a.ID, b.ID)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "number_of_weeks":
		return compareInts(a.NumberOfWeeks, b.NumberOfWeeks)
	case "incidents":
		return compareInts(a.Incidents, b.Incidents)
	case "run_at":
		return compareTimes(a.RunAt, b.RunAt)
	case "student_count":
		return compareInts(a.StudentCount, b.StudentCount)
	default:
		return 0
	}
}

func (repo *groupRepository) GetGroup(_ context.Context, id int, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grp, ok := repo.db.table[id]; ok {
		return *grp, nil
	}
	return group.Group{}, core.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// run info is owned by the filter job
	origGrp, ok := repo.db.table[grp.ID]
	if !ok {
		return group.Group{}, core.ErrNotFound
	}
	origGrp.Name = grp.Name
	origGrp.NumberOfWeeks = grp.NumberOfWeeks
	origGrp.RollStates = grp.RollStates
	origGrp.Incidents = grp.Incidents
	origGrp.LTMT = grp.LTMT
	return *origGrp, nil
}

func (repo *groupRepository) UpdateGroupRunInfo(_ context.Context, id int, runAt time.Time, studentCount int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	grp, ok := repo.db.table[id]
	if !ok {
		return core.ErrNotFound
	}
	grp.RunAt = null.TimeFrom(runAt.UTC())
	grp.StudentCount = studentCount
	return nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *groupRepository) QueryMemberships(_ context.Context, groupID int, _ ...core.DBExecutor) ([]group.Membership, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]group.Membership, 0)
	for _, m := range repo.db.members {
		if groupID == 0 || m.GroupID == groupID {
			members = append(members, *m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].GroupID != members[j].GroupID {
			return members[i].GroupID < members[j].GroupID
		}
		return members[i].StudentID < members[j].StudentID
	})
	return members, nil
}

func (repo *groupRepository) ReplaceMemberships(_ context.Context, groupID int, members []group.Membership, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, m := range repo.db.members {
		if m.GroupID == groupID {
			delete(repo.db.members, id)
		}
	}
	for _, m := range members {
		repo.db.memberPKCount++
		m.ID = repo.db.memberPKCount
		m.GroupID = groupID
		repo.db.members[m.ID] = &m
	}
	return nil
}

func (repo *groupRepository) DeleteOrphanMemberships(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for id, m := range repo.db.members {
		if _, ok := repo.db.table[m.GroupID]; !ok {
			delete(repo.db.members, id)
			n++
		}
	}
	return n, nil
}
