package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/llmbench/internal/store"
	"github.com/codeready-toolchain/llmbench/internal/toolsession"
)

func TestIsWithinRecencyWindow_19HoursSkips(t *testing.T) {
	assert.True(t, isWithinRecencyWindow(19*time.Hour))
}

func TestIsWithinRecencyWindow_21HoursDoesNotSkip(t *testing.T) {
	assert.False(t, isWithinRecencyWindow(21*time.Hour))
}

func TestIsWithinRecencyWindow_ExactlyBoundaryDoesNotSkip(t *testing.T) {
	assert.False(t, isWithinRecencyWindow(20*time.Hour))
}

func TestRunGuarded_DropsConcurrentTrigger(t *testing.T) {
	s := New(Deps{})
	var flag atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	go func() {
		s.runGuarded(context.Background(), store.SuiteHourly, &flag, func(ctx context.Context, suite store.Suite) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
		})
	}()
	<-started

	// second trigger while the first is still in flight must be dropped
	s.runGuarded(context.Background(), store.SuiteHourly, &flag, func(ctx context.Context, suite store.Suite) {
		atomic.AddInt32(&calls, 1)
	})

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	close(release)
}

func TestRunGuarded_AllowsSequentialTriggersAfterCompletion(t *testing.T) {
	s := New(Deps{})
	var flag atomic.Bool
	var calls int32

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		s.runGuarded(context.Background(), store.SuiteDeep, &flag, func(ctx context.Context, suite store.Suite) {
			atomic.AddInt32(&calls, 1)
			wg.Done()
		})
	}
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestToolStatusFor_MaxTurnsWithoutSuccessIsTimedOut(t *testing.T) {
	status := toolStatusFor(toolsession.Outcome{Termination: toolsession.TerminationMaxTurns, Succeeded: false})
	assert.Equal(t, store.ToolSessionTimedOut, status)
}

func TestToolStatusFor_SuccessIsCompleted(t *testing.T) {
	status := toolStatusFor(toolsession.Outcome{Termination: toolsession.TerminationSuccess, Succeeded: true})
	assert.Equal(t, store.ToolSessionCompleted, status)
}

func TestCountCalls_SplitsSuccessAndFailure(t *testing.T) {
	calls := []toolsession.CallRecord{
		{Success: true}, {Success: true}, {Success: false},
	}
	assert.Equal(t, 2, countCalls(calls, true))
	assert.Equal(t, 1, countCalls(calls, false))
}
