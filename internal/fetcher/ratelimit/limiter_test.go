package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tender-crawler/internal/tender"
)

type countingFetcher struct {
	calls atomic.Int32
}

func (c *countingFetcher) Fetch(_ context.Context, page tender.PageIndex) tender.PageOutcome {
	c.calls.Add(1)
	return tender.Success(tender.RawPage{Page: page})
}

func TestWrapDisabledReturnsSameFetcher(t *testing.T) {
	next := &countingFetcher{}
	require.Same(t, next, Wrap(next, Config{}))
}

func TestFetchWaitsForToken(t *testing.T) {
	next := &countingFetcher{}
	f := Wrap(next, Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.True(t, f.Fetch(ctx, 1).OK())

	start := time.Now()
	require.True(t, f.Fetch(ctx, 2).OK())
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	require.Equal(t, int32(2), next.calls.Load())
}

func TestFetchCanceledWhileWaiting(t *testing.T) {
	next := &countingFetcher{}
	f := Wrap(next, Config{RPS: 0.1, Burst: 1})

	require.True(t, f.Fetch(context.Background(), 1).OK())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := f.Fetch(ctx, 2)

	require.False(t, out.OK())
	require.Equal(t, tender.FailureNetwork, out.Failure)
	require.Equal(t, int32(1), next.calls.Load())
}
