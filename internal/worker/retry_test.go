package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpile/internal/domain"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return time.Millisecond },
	}
}

// failN fails the first n invocations, then succeeds, recording the
// attempt number of every call.
func failN(n int, calls *[]int) UnitOfWork {
	return func(ctx context.Context, w domain.Work, attempt int) error {
		*calls = append(*calls, attempt)
		if len(*calls) <= n {
			return errors.New("transient failure")
		}
		return nil
	}
}

func TestExecuteWithRetrySucceedsFirstAttempt(t *testing.T) {
	var calls []int
	err := fastPolicy(3).ExecuteWithRetry(context.Background(), domain.NewWork("x"), failN(0, &calls))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, calls)
}

func TestExecuteWithRetryEventualSuccess(t *testing.T) {
	// Fails k < attempts times, then succeeds: exactly k+1 executions.
	var calls []int
	err := fastPolicy(3).ExecuteWithRetry(context.Background(), domain.NewWork("x"), failN(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestExecuteWithRetryExhaustion(t *testing.T) {
	var calls []int
	err := fastPolicy(3).ExecuteWithRetry(context.Background(), domain.NewWork("x"), failN(99, &calls))
	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls, "exactly the attempt budget, no more")
	assert.Contains(t, err.Error(), "exhausted 3 attempts")
}

func TestExecuteWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Minute },
	}

	var calls []int
	done := make(chan error, 1)
	go func() {
		done <- policy.ExecuteWithRetry(ctx, domain.NewWork("x"), failN(99, &calls))
	}()

	// Give the first attempt time to fail, then cancel mid-backoff.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []int{1}, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancel")
	}
}

func TestExpBackoffSchedule(t *testing.T) {
	backoff := ExpBackoff(time.Second)
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, maxBackoff, backoff(10))
}
