package jt808

import (
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// 解码结果标签（指标用）
const (
	ResultOK       = "ok"
	ResultBuffered = "buffered"
	ResultUnknown  = "unknown"
	ResultError    = "error"
	ResultBadFrame = "bad_frame"
)

// Adapter JT/T 808 协议适配器：0x7E 切帧 -> 编解码门面 -> 路由表分发
type Adapter struct {
	decoder  *StreamDecoder
	codec    *Codec
	table    *Table
	logger   *zap.Logger
	onDecode func(result string)
}

// NewAdapter 每个连接一个适配器；codec 可在连接间共享
func NewAdapter(codec *Codec) *Adapter {
	if codec == nil {
		codec = NewCodec()
	}
	return &Adapter{decoder: NewStreamDecoder(), codec: codec, table: NewTable(), logger: zap.NewNop()}
}

func (a *Adapter) Name() string { return "jt808" }

func (a *Adapter) SetLogger(l *zap.Logger) {
	if l != nil {
		a.logger = l
	}
}

// SetDecodeHook 每帧解码后回调结果标签
func (a *Adapter) SetDecodeHook(fn func(result string)) { a.onDecode = fn }

// Register 注册消息处理器
func (a *Adapter) Register(id uint16, h Handler) { a.table.Register(id, h) }

// SetFallback 未注册消息的处理器
func (a *Adapter) SetFallback(h Handler) { a.table.SetFallback(h) }

func (a *Adapter) Codec() *Codec { return a.codec }

// Sniff 以 0x7E 开头视为 JT/T 808
func (a *Adapter) Sniff(prefix []byte) bool {
	return len(prefix) > 0 && prefix[0] == FlagByte
}

// ProcessBytes 处理原始字节流。坏帧与解码失败只记录，不中断后续帧；
// 返回处理器错误（多个时合并）
func (a *Adapter) ProcessBytes(p []byte) error {
	frames, ferr := a.decoder.Feed(p)
	if ferr != nil {
		a.logger.Warn("jt808 bad frame dropped", zap.Error(ferr))
		a.report(ResultBadFrame)
	}
	var errs []error
	for _, fr := range frames {
		d, err := a.codec.Decode(fr)
		if err != nil {
			if IsSoft(err) {
				a.logger.Debug("jt808 unknown message skipped",
					zap.String("msg_id", fmt.Sprintf("0x%04X", d.Header.MessageID)),
					zap.String("phone", d.Header.PhoneNumber),
				)
				a.report(ResultUnknown)
				continue
			}
			a.logger.Warn("jt808 decode failed",
				zap.String("msg_id", fmt.Sprintf("0x%04X", d.Header.MessageID)),
				zap.String("raw", hex.EncodeToString(fr)),
				zap.Error(err),
			)
			a.report(ResultError)
			continue
		}
		if d.Buffered {
			a.report(ResultBuffered)
			continue
		}
		a.report(ResultOK)
		if err := a.table.Route(&d); err != nil {
			errs = append(errs, fmt.Errorf("handle 0x%04X: %w", d.Header.MessageID, err))
		}
	}
	return errors.Join(errs...)
}

// Frame 编码消息并加上校验码、转义与标识位，得到可直接写入连接的字节
func (a *Adapter) Frame(h Header, m Message) ([]byte, error) {
	b, err := a.codec.Encode(h, m)
	if err != nil {
		return nil, err
	}
	return Pack(b), nil
}

func (a *Adapter) report(result string) {
	if a.onDecode != nil {
		a.onDecode(result)
	}
}
