package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(8)
	p.Start(ctx, 2)

	var n atomic.Int32
	for _, k := range []string{"a", "b", "c"} {
		require.True(t, p.Submit(Job{Key: k, Run: func(context.Context) { n.Add(1) }}))
	}
	require.Eventually(t, func() bool { return n.Load() == 3 && p.Pending() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	p.Wait()
}

func TestPoolDedupesByKey(t *testing.T) {
	p := NewPool(8)
	release := make(chan struct{})
	job := Job{Key: "same", Run: func(context.Context) { <-release }}

	assert.True(t, p.Submit(job))
	assert.False(t, p.Submit(job))
	assert.Equal(t, 1, p.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 1)
	close(release)
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Submit(Job{Key: "same", Run: func(context.Context) {}}))

	cancel()
	p.Wait()
}

func TestPoolDropsWhenFull(t *testing.T) {
	p := NewPool(1)
	assert.True(t, p.Submit(Job{Key: "a", Run: func(context.Context) {}}))
	assert.False(t, p.Submit(Job{Key: "b", Run: func(context.Context) {}}))
	assert.Equal(t, 1, p.Pending())
}

func TestPoolSurvivesPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPool(4)
	p.Start(ctx, 1)

	var ran atomic.Bool
	p.Submit(Job{Key: "boom", Run: func(context.Context) { panic("boom") }})
	p.Submit(Job{Key: "ok", Run: func(context.Context) { ran.Store(true) }})
	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
}
