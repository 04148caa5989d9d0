package group

import (
	"sort"
	"time"

	"github.com/trezcool/rollcall/core/roll"
)

// Cutoff returns the instant a roll must have been completed after to count for a Group
// looking back `weeks` weeks from `now`.
func Cutoff(now time.Time, weeks int) time.Time {
	return now.UTC().AddDate(0, 0, -7*weeks)
}

// Tally counts the roll states per student.
func Tally(states []roll.StudentRollState) map[int]int {
	counts := make(map[int]int)
	for _, s := range states {
		counts[s.StudentID]++
	}
	return counts
}

// Memberships returns the students of `counts` passing the threshold of `grp`, sorted by student.
func Memberships(grp Group, counts map[int]int) []Membership {
	members := make([]Membership, 0, len(counts))
	for studentID, count := range counts {
		if grp.LTMT.Qualifies(grp.Incidents, count) {
			members = append(members, Membership{
				GroupID:       grp.ID,
				StudentID:     studentID,
				IncidentCount: count,
			})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].StudentID < members[j].StudentID })
	return members
}
