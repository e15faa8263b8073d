package escalation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leaveflow/internal/escalation"
)

type fakeEvaluator struct {
	evaluateFn func(ctx context.Context, now time.Time) (escalation.Report, error)
	calls      int
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, now time.Time) (escalation.Report, error) {
	f.calls++
	if f.evaluateFn != nil {
		return f.evaluateFn(ctx, now)
	}
	return escalation.Report{}, nil
}

func TestScheduler_TriggerManual(t *testing.T) {
	ctx := context.Background()

	t.Run("runs a sweep even while stopped", func(t *testing.T) {
		evaluator := &fakeEvaluator{
			evaluateFn: func(ctx context.Context, now time.Time) (escalation.Report, error) {
				return escalation.Report{Candidates: 3, Escalated: 2, Skipped: 1}, nil
			},
		}
		scheduler := escalation.NewScheduler(evaluator, time.Hour)

		report, err := scheduler.TriggerManual(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 2, report.Escalated)
		assert.Equal(t, 1, evaluator.calls)

		status := scheduler.Status()
		assert.False(t, status.Running)
		assert.NotNil(t, status.LastRunAt)
		assert.Equal(t, report, *status.LastRun)
		assert.Nil(t, status.NextRunAt)
	})

	t.Run("routes through the loop while running", func(t *testing.T) {
		evaluator := &fakeEvaluator{
			evaluateFn: func(ctx context.Context, now time.Time) (escalation.Report, error) {
				return escalation.Report{Candidates: 1, Escalated: 1}, nil
			},
		}
		scheduler := escalation.NewScheduler(evaluator, time.Hour)
		scheduler.Start()
		defer scheduler.Stop()

		report, err := scheduler.TriggerManual(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, report.Escalated)
		assert.Equal(t, 1, evaluator.calls)
	})

	t.Run("negative evaluator error surfaces", func(t *testing.T) {
		evaluator := &fakeEvaluator{
			evaluateFn: func(ctx context.Context, now time.Time) (escalation.Report, error) {
				return escalation.Report{}, errors.New("db unavailable")
			},
		}
		scheduler := escalation.NewScheduler(evaluator, time.Hour)

		_, err := scheduler.TriggerManual(ctx)

		assert.Error(t, err)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	evaluator := &fakeEvaluator{}
	scheduler := escalation.NewScheduler(evaluator, time.Hour)

	assert.False(t, scheduler.Status().Running)

	scheduler.Start()
	status := scheduler.Status()
	assert.True(t, status.Running)
	assert.Equal(t, "1h0m0s", status.Interval)
	assert.NotNil(t, status.NextRunAt)

	// Starting twice must not spawn a second loop.
	scheduler.Start()

	scheduler.Stop()
	status = scheduler.Status()
	assert.False(t, status.Running)
	assert.Nil(t, status.NextRunAt)

	// Stopping twice is safe.
	scheduler.Stop()
}
