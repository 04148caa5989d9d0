package main

import (
	"context"

	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/services/scheduler"
)

type groupFilterJob struct {
	svc group.Service
}

var _ scheduler.Job = (*groupFilterJob)(nil) // interface compliance check

func newGroupFilterJob(svc group.Service) *groupFilterJob {
	return &groupFilterJob{svc: svc}
}

func (job *groupFilterJob) Name() string {
	return "group-filters"
}

// Run recomputes the group memberships. failures of single groups are part of the report
// and do not fail the job.
func (job *groupFilterJob) Run(ctx context.Context) error {
	_, err := job.svc.RunFilters(ctx)
	return err
}
