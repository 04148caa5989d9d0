package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type countingJob struct {
	runs int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s := New(nopLogger{})

	assert.Equal(t, ErrNilJob, s.Register(nil, time.Second))
	assert.Equal(t, ErrInvalidInterval, s.Register(&countingJob{}, 0))
	assert.NoError(t, s.Register(&countingJob{}, time.Second))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Equal(t, ErrAlreadyStarted, s.Register(&countingJob{}, time.Second))
	assert.Equal(t, ErrAlreadyStarted, s.Start(context.Background()))
}

func TestScheduler_runs(t *testing.T) {
	tests := []struct {
		name string
		job  *countingJob
	}{
		{name: "succeeding job", job: &countingJob{}},
		{name: "failing job keeps running", job: &countingJob{err: errors.New("boom")}},
		{name: "locked job keeps running", job: &countingJob{err: core.ErrLocked}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nopLogger{})
			require.NoError(t, s.Register(tt.job, 5*time.Millisecond))
			require.NoError(t, s.Start(context.Background()))

			assert.Eventually(t, func() bool { return atomic.LoadInt32(&tt.job.runs) >= 3 }, time.Second, time.Millisecond)

			s.Stop()
			runs := atomic.LoadInt32(&tt.job.runs)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, runs, atomic.LoadInt32(&tt.job.runs), "no run after Stop")
		})
	}
}
