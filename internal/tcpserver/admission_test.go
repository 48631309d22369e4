package tcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmission_ConnectionLimit(t *testing.T) {
	a := NewAdmission(2, 50*time.Millisecond, 0, 0)
	ctx := context.Background()

	r1, err := a.Admit(ctx)
	require.NoError(t, err)
	r2, err := a.Admit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Active())

	_, err = a.Admit(ctx)
	assert.ErrorIs(t, err, ErrTooManyConnections)

	// 重复释放只生效一次
	r1()
	r1()
	assert.Equal(t, 1, a.Active())

	r3, err := a.Admit(ctx)
	require.NoError(t, err)
	r2()
	r3()

	st := a.Stats()
	assert.Equal(t, 2, st.MaxConnections)
	assert.Equal(t, 0, st.ActiveConnections)
	assert.Equal(t, int64(1), st.LimitRejected)
}

func TestAdmission_Rate(t *testing.T) {
	a := NewAdmission(100, time.Second, 1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		release, err := a.Admit(ctx)
		require.NoError(t, err, "burst %d", i)
		release()
	}
	_, err := a.Admit(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(1), a.Stats().RateRejected)
}

func TestAdmission_ContextCanceled(t *testing.T) {
	a := NewAdmission(1, time.Second, 0, 0)
	release, err := a.Admit(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Admit(ctx)
	assert.ErrorIs(t, err, ErrTooManyConnections)
}
