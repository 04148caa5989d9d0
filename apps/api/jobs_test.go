package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

type fakeGroupService struct {
	group.Service
	runs int
	err  error
}

func (svc *fakeGroupService) RunFilters(context.Context) (group.RunReport, error) {
	svc.runs++
	return group.RunReport{}, svc.err
}

func TestGroupFilterJob_Run(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "success"},
		{name: "locked", err: errors.Wrap(core.ErrLocked, "locking"), wantErr: core.ErrLocked},
		{name: "failure", err: context.DeadlineExceeded, wantErr: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeGroupService{err: tt.err}
			job := newGroupFilterJob(svc)

			err := job.Run(context.Background())
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			assert.Equal(t, 1, svc.runs)
			assert.Equal(t, "group-filters", job.Name())
		})
	}
}
