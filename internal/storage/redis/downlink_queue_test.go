package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 Redis，不可用时跳过
func setupTestClient(t *testing.T) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skip("Redis not available, skipping test")
	}
	rdb.FlushDB(ctx)
	t.Cleanup(func() {
		rdb.FlushDB(ctx)
		rdb.Close()
	})
	return Wrap(rdb)
}

func TestScore_PriorityThenTime(t *testing.T) {
	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	high := &DownlinkMessage{Priority: 9, CreatedAt: base.Add(time.Hour)}
	low := &DownlinkMessage{Priority: 0, CreatedAt: base}
	early := &DownlinkMessage{Priority: 5, CreatedAt: base}
	late := &DownlinkMessage{Priority: 5, CreatedAt: base.Add(time.Millisecond)}

	assert.Less(t, score(high), score(low))
	assert.Less(t, score(early), score(late))
	assert.Equal(t, score(&DownlinkMessage{Priority: 42, CreatedAt: base}), score(&DownlinkMessage{Priority: 9, CreatedAt: base}))
}

func TestDownlinkQueue_PushDrain(t *testing.T) {
	client := setupTestClient(t)
	q := NewDownlinkQueue(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &DownlinkMessage{Phone: "013812345678", MessageID: 0x8300, Body: []byte{0x01, 'a'}, Priority: 1}))
	require.NoError(t, q.Push(ctx, &DownlinkMessage{Phone: "013812345678", MessageID: 0x8500, Body: []byte{0x01}, Priority: 9}))
	require.NoError(t, q.Push(ctx, &DownlinkMessage{Phone: "013800000000", MessageID: 0x8104}))

	n, err := q.Len(ctx, "013812345678")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	msgs, err := q.Drain(ctx, "013812345678", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, uint16(0x8500), msgs[0].MessageID)
	assert.Equal(t, uint16(0x8300), msgs[1].MessageID)
	assert.Equal(t, []byte{0x01, 'a'}, msgs[1].Body)
	assert.NotEmpty(t, msgs[0].ID)

	n, err = q.Len(ctx, "013812345678")
	require.NoError(t, err)
	assert.Zero(t, n)

	ttl, err := client.TTL(ctx, downlinkKey("013800000000")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestDownlinkQueue_DropsExpired(t *testing.T) {
	client := setupTestClient(t)
	q := NewDownlinkQueue(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &DownlinkMessage{Phone: "A", MessageID: 0x8300, CreatedAt: time.Now().Add(-2 * time.Minute)}))
	require.NoError(t, q.Push(ctx, &DownlinkMessage{Phone: "A", MessageID: 0x8104}))

	msgs, err := q.Drain(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint16(0x8104), msgs[0].MessageID)
}

func TestDownlinkQueue_MarkFailed(t *testing.T) {
	client := setupTestClient(t)
	q := NewDownlinkQueue(client, time.Hour)
	ctx := context.Background()

	msg := &DownlinkMessage{Phone: "A", MessageID: 0x8300, MaxRetry: 2}
	require.NoError(t, q.Push(ctx, msg))
	msgs, err := q.Drain(ctx, "A", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// 第一次失败重新入队
	require.NoError(t, q.MarkFailed(ctx, msgs[0], errors.New("write timeout")))
	n, _ := q.Len(ctx, "A")
	assert.Equal(t, int64(1), n)

	// 第二次失败进入死信
	msgs, err = q.Drain(ctx, "A", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].Retries)
	require.NoError(t, q.MarkFailed(ctx, msgs[0], errors.New("write timeout")))

	n, _ = q.Len(ctx, "A")
	assert.Zero(t, n)
	dead, err := q.DeadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestDownlinkQueue_EmptyPhone(t *testing.T) {
	q := NewDownlinkQueue(nil, 0)
	assert.Error(t, q.Push(context.Background(), &DownlinkMessage{}))
}
