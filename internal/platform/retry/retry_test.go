package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func classify(err error) Action {
	if errors.Is(err, errFatal) {
		return Stop
	}
	return Retry
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error, backoff time.Duration) { retried = append(retried, attempt) }

	val, err := Do(context.Background(), p, classify, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, errFatal
	})

	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), Always, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, InitialBackoff: time.Hour}
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	_, err := Do(ctx, p, Always, func(ctx context.Context) (int, error) {
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsEmptyPolicy(t *testing.T) {
	_, err := Do(context.Background(), Policy{}, Always, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrNoAttempts)
}

func TestDefaultPolicy(t *testing.T) {
	assert.Equal(t, 1, DefaultPolicy(0).MaxAttempts)
	assert.Equal(t, 4, DefaultPolicy(4).MaxAttempts)
}
