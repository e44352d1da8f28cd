package lock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishchith-m1015/campaign-sync/pkg/lock"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	locker := lock.NewLocalLocker()

	release, acquired, err := locker.Acquire(t.Context(), "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = locker.Acquire(t.Context(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "held lock must not be reacquired")

	_, otherAcquired, err := locker.Acquire(t.Context(), "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, otherAcquired)

	require.NoError(t, release(t.Context()))

	_, acquired, err = locker.Acquire(t.Context(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "released lock is free again")
}

func TestLocalLocker_TTLExpiry(t *testing.T) {
	locker := lock.NewLocalLocker()

	_, acquired, err := locker.Acquire(t.Context(), "sweep", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	_, acquired, err = locker.Acquire(t.Context(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "expired lock can be taken by a new holder")
}
