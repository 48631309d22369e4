package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_Transitions(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	b := NewBreaker(3, time.Minute)
	b.now = func() time.Time { return now }

	var changes []string
	b.OnStateChange(func(from, to BreakerState) {
		changes = append(changes, from.String()+"->"+to.String())
	})

	boom := errors.New("redis down")
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, BreakerOpen, b.State())
	assert.Equal(t, int64(1), b.Trips())

	called := false
	assert.ErrorIs(t, b.Do(func() error { called = true; return nil }), ErrBreakerOpen)
	assert.False(t, called)

	// 冷却后半开探测，探测失败重新熔断
	now = now.Add(time.Minute)
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.Equal(t, BreakerOpen, b.State())
	assert.Equal(t, int64(2), b.Trips())

	// 探测成功恢复
	now = now.Add(time.Minute)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half_open",
		"half_open->open",
		"open->half_open",
		"half_open->closed",
	}, changes)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	boom := errors.New("x")
	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return boom })
	assert.Equal(t, BreakerClosed, b.State())
	_ = b.Do(func() error { return boom })
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreaker_SingleProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }
	_ = b.Do(func() error { return errors.New("x") })

	now = now.Add(time.Second)
	assert.NoError(t, b.allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	// 探测未结束时其余调用被拒绝
	assert.ErrorIs(t, b.allow(), ErrBreakerOpen)
	b.record(nil)
	assert.Equal(t, BreakerClosed, b.State())
}
