package jt808

import (
	"encoding/binary"
	"fmt"
)

// Reader 只读游标：在不可变字节切片上按序读取，越界时返回错误而不是 panic
type Reader struct {
	msgID uint16
	buf   []byte
	off   int
}

// NewReader 创建游标，msgID 仅用于错误信息
func NewReader(msgID uint16, b []byte) *Reader {
	return &Reader{msgID: msgID, buf: b}
}

// Len 剩余未读字节数
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Offset 已读字节数
func (r *Reader) Offset() int { return r.off }

func (r *Reader) need(n int) error {
	if n < 0 || r.Len() < n {
		return &BodyTooShortError{MessageID: r.msgID, Required: r.off + n, Actual: len(r.buf)}
	}
	return nil
}

func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Bytes 读取 n 字节，返回的切片与源数据共享底层数组
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return v, nil
}

// Rest 读取剩余全部字节
func (r *Reader) Rest() []byte {
	v := r.buf[r.off:len(r.buf):len(r.buf)]
	r.off = len(r.buf)
	return v
}

// BCD 读取 n 字节 BCD 并解码为十进制数字串
func (r *Reader) BCD(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return DecodeBCD(b)
}

// GBK 读取 n 字节 GBK 字符串，去除尾部 0x00 填充
func (r *Reader) GBK(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return DecodeGBK(trimZero(b))
}

// LenPrefixedGBK 读取 1 字节长度前缀的 GBK 字符串
func (r *Reader) LenPrefixedGBK() (string, error) {
	n, err := r.Uint8()
	if err != nil {
		return "", err
	}
	return r.GBK(int(n))
}

// Done 固定格式消息体解析完毕后调用：存在多余字节视为长度不符
func (r *Reader) Done() error {
	if r.Len() != 0 {
		return fmt.Errorf("%w: 0x%04X has %d trailing bytes", ErrBodyLengthMismatch, r.msgID, r.Len())
	}
	return nil
}

func trimZero(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0x00 {
		end--
	}
	return b[:end]
}
