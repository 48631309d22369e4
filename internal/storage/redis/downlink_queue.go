package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	downlinkKeyPrefix = "jt808:downlink:"     // 终端维度待下发队列（Sorted Set，按优先级+时间排序）
	downlinkDeadKey   = "jt808:downlink:dead" // 死信（List）
	deadLetterCap     = 1000

	// MaxPriority 最高优先级
	MaxPriority = 9
)

// DownlinkMessage 离线终端的待下发指令
// Body 为已编码的消息体，重新上线时按当前流水号重新组帧
type DownlinkMessage struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	MessageID uint16    `json:"message_id"`
	Body      []byte    `json:"body"`
	Priority  int       `json:"priority"` // 0-9，9最高
	Retries   int       `json:"retries"`
	MaxRetry  int       `json:"max_retry"`
	CreatedAt time.Time `json:"created_at"`
}

// DownlinkQueue 按终端手机号分桶的 Redis 下行队列
type DownlinkQueue struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

// NewDownlinkQueue 创建下行队列，ttl 为消息最长保留时间
func NewDownlinkQueue(client *Client, ttl time.Duration) *DownlinkQueue {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownlinkQueue{client: client, ttl: ttl, now: time.Now}
}

func downlinkKey(phone string) string { return downlinkKeyPrefix + phone }

// score 越小越先出队：优先级高的排前面，同优先级按入队时间
func score(msg *DownlinkMessage) float64 {
	p := msg.Priority
	if p < 0 {
		p = 0
	}
	if p > MaxPriority {
		p = MaxPriority
	}
	return float64(MaxPriority-p)*1e13 + float64(msg.CreatedAt.UnixMilli())
}

// Push 入队，补全 ID 与创建时间，并刷新队列过期时间
func (q *DownlinkQueue) Push(ctx context.Context, msg *DownlinkMessage) error {
	if msg.Phone == "" {
		return errors.New("downlink: empty phone")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = q.now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal downlink: %w", err)
	}

	key := downlinkKey(msg.Phone)
	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score(msg), Member: data})
	pipe.Expire(ctx, key, q.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Drain 取出终端最多 max 条待下发消息，超过保留时间的消息被丢弃
func (q *DownlinkQueue) Drain(ctx context.Context, phone string, max int64) ([]*DownlinkMessage, error) {
	if max <= 0 {
		max = 100
	}
	result, err := q.client.ZPopMin(ctx, downlinkKey(phone), max).Result()
	if err != nil {
		return nil, err
	}

	deadline := q.now().Add(-q.ttl)
	out := make([]*DownlinkMessage, 0, len(result))
	for _, z := range result {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var msg DownlinkMessage
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			return out, fmt.Errorf("unmarshal downlink: %w", err)
		}
		if msg.CreatedAt.Before(deadline) {
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}

// MarkFailed 下发失败：未超过重试次数则重新入队，否则进入死信
func (q *DownlinkQueue) MarkFailed(ctx context.Context, msg *DownlinkMessage, cause error) error {
	msg.Retries++
	if msg.Retries < msg.MaxRetry {
		return q.Push(ctx, msg)
	}

	dead := struct {
		Message  *DownlinkMessage `json:"message"`
		Error    string           `json:"error"`
		FailedAt time.Time        `json:"failed_at"`
	}{Message: msg, FailedAt: q.now()}
	if cause != nil {
		dead.Error = cause.Error()
	}
	data, err := json.Marshal(dead)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, downlinkDeadKey, data)
	pipe.LTrim(ctx, downlinkDeadKey, 0, deadLetterCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Len 终端待下发消息数量
func (q *DownlinkQueue) Len(ctx context.Context, phone string) (int64, error) {
	return q.client.ZCard(ctx, downlinkKey(phone)).Result()
}

// DeadCount 死信数量
func (q *DownlinkQueue) DeadCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, downlinkDeadKey).Result()
}
