package assist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient fails a fixed number of times before succeeding.
type fakeClient struct {
	calls    int
	failures int
	err      error
	response string
}

func (f *fakeClient) Convert(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return f.response, nil
}

func newTestRetrier(c Client, attempts int) *Retrier {
	r := NewRetrier(c, attempts, 10*time.Millisecond, 100*time.Millisecond, 0)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestRetrierSucceedsFirstTry(t *testing.T) {
	fake := &fakeClient{response: "ok"}
	r := newTestRetrier(fake, 3)

	raw, err := r.Convert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", raw)
	assert.Equal(t, 1, fake.calls)
}

func TestRetrierRetriesTransientFaults(t *testing.T) {
	fake := &fakeClient{
		failures: 2,
		err:      fmt.Errorf("%w: connection reset", ErrInvocation),
		response: "recovered",
	}
	r := newTestRetrier(fake, 3)

	raw, err := r.Convert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", raw)
	assert.Equal(t, 3, fake.calls)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	fake := &fakeClient{
		failures: 10,
		err:      fmt.Errorf("%w: service down", ErrInvocation),
	}
	r := newTestRetrier(fake, 3)

	_, err := r.Convert(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvocation)
	assert.Equal(t, 3, fake.calls)
}

func TestRetrierDoesNotRetryRefusal(t *testing.T) {
	fake := &fakeClient{
		failures: 10,
		err:      fmt.Errorf("%w: empty response", ErrRefusal),
	}
	r := newTestRetrier(fake, 3)

	_, err := r.Convert(context.Background(), nil)
	require.ErrorIs(t, err, ErrRefusal)
	assert.Equal(t, 1, fake.calls)
}

func TestRetrierStopsOnCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeClient{
		failures: 10,
		err:      fmt.Errorf("%w: transient", ErrInvocation),
	}
	r := newTestRetrier(fake, 5)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	cancel()
	_, err := r.Convert(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	r := NewRetrier(nil, 5, time.Second, 5*time.Second, 0)

	assert.Equal(t, time.Second, r.backoff(1))
	assert.Equal(t, 2*time.Second, r.backoff(2))
	assert.Equal(t, 4*time.Second, r.backoff(3))
	assert.Equal(t, 5*time.Second, r.backoff(4))
	assert.Equal(t, time.Duration(0), r.backoff(0))
}
