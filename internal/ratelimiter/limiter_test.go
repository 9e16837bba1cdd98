package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/deadline-reminders/internal/ratelimiter"
)

func TestTransportLimiter_Unlimited(t *testing.T) {
	l := ratelimiter.New(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
}

func TestTransportLimiter_CancelledWhileWaiting(t *testing.T) {
	l := ratelimiter.New(0.001, 1)
	require.NoError(t, l.Wait(context.Background()), "burst token is granted immediately")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}
