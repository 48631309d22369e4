package jt808

import (
	"bytes"
	"fmt"
)

// 标识位与转义
const (
	FlagByte   byte = 0x7E
	EscapeByte byte = 0x7D
)

// 一帧去转义后至少包含 2013 版最短头部与校验码
const minFrameInner = 12 + 1

// 单帧上限：头部 + 1023 字节消息体 + 校验码，转义后最多翻倍
const maxFrameLength = 2 + 2*(17+4+MaxBodyLength+1)

// Checksum 从消息头开始异或至消息体结束
func Checksum(b []byte) byte {
	var cs byte
	for _, v := range b {
		cs ^= v
	}
	return cs
}

// Escape 0x7E -> 0x7D 0x02，0x7D -> 0x7D 0x01
func Escape(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/8+2)
	for _, v := range b {
		switch v {
		case FlagByte:
			out = append(out, EscapeByte, 0x02)
		case EscapeByte:
			out = append(out, EscapeByte, 0x01)
		default:
			out = append(out, v)
		}
	}
	return out
}

// Unescape Escape 的逆过程，非法转义序列返回 ErrBadEscape
func Unescape(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != EscapeByte {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, fmt.Errorf("%w: dangling 0x7D at %d", ErrBadEscape, i)
		}
		switch b[i+1] {
		case 0x01:
			out = append(out, EscapeByte)
		case 0x02:
			out = append(out, FlagByte)
		default:
			return nil, fmt.Errorf("%w: 0x7D 0x%02X at %d", ErrBadEscape, b[i+1], i)
		}
		i++
	}
	return out, nil
}

// Pack 为消息（头部 + 消息体）追加校验码、转义并加上首尾标识位
func Pack(msg []byte) []byte {
	inner := make([]byte, 0, len(msg)+1)
	inner = append(inner, msg...)
	inner = append(inner, Checksum(msg))
	esc := Escape(inner)
	out := make([]byte, 0, len(esc)+2)
	out = append(out, FlagByte)
	out = append(out, esc...)
	return append(out, FlagByte)
}

// Unpack Pack 的逆过程：去标识位、去转义、校验，返回头部 + 消息体
func Unpack(frame []byte) ([]byte, error) {
	if len(frame) >= 2 && frame[0] == FlagByte && frame[len(frame)-1] == FlagByte {
		frame = frame[1 : len(frame)-1]
	}
	inner, err := Unescape(frame)
	if err != nil {
		return nil, err
	}
	if len(inner) < minFrameInner {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(inner))
	}
	msg, cs := inner[:len(inner)-1], inner[len(inner)-1]
	if got := Checksum(msg); got != cs {
		return nil, fmt.Errorf("%w: want 0x%02X, got 0x%02X", ErrChecksumMismatch, cs, got)
	}
	return msg, nil
}

// StreamDecoder 按 0x7E 切分 TCP 字节流（处理半包/粘包）
type StreamDecoder struct{ buf []byte }

func NewStreamDecoder() *StreamDecoder { return &StreamDecoder{} }

// Feed 追加数据并返回其中所有完整且校验通过的消息。
// 坏帧被丢弃，其错误与成功帧一并返回（仅返回最后一个错误）
func (d *StreamDecoder) Feed(p []byte) ([][]byte, error) {
	d.buf = append(d.buf, p...)
	var out [][]byte
	var lastErr error
	for {
		start := bytes.IndexByte(d.buf, FlagByte)
		if start < 0 {
			d.buf = d.buf[:0]
			return out, lastErr
		}
		if start > 0 {
			d.buf = d.buf[start:]
		}
		end := bytes.IndexByte(d.buf[1:], FlagByte)
		if end < 0 {
			if len(d.buf) > maxFrameLength {
				d.buf = d.buf[:0]
				lastErr = fmt.Errorf("%w: no end flag within %d bytes", ErrBodyTooLong, maxFrameLength)
			}
			return out, lastErr
		}
		end++
		if end == 1 {
			// 连续两个 0x7E：前一个视为上一帧的结束标识
			d.buf = d.buf[1:]
			continue
		}
		msg, err := Unpack(d.buf[:end+1])
		// 结束标识保留为下一帧的候选起始标识
		d.buf = d.buf[end:]
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, msg)
	}
}

// Buffered 缓冲中尚未成帧的字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }
