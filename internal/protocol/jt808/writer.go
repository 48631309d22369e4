package jt808

import (
	"encoding/binary"
	"fmt"
)

// Writer 大端序追加写入器
type Writer struct {
	buf []byte
}

// NewWriter 创建写入器，size 为预分配容量
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes 返回已写入内容
func (w *Writer) Bytes() []byte { return w.buf }

// Len 已写入字节数
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Uint16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *Writer) Uint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *Writer) Write(b []byte) { w.buf = append(w.buf, b...) }

// BCD 写入定长 BCD 数字串（左侧补0）
func (w *Writer) BCD(digits string, width int) error {
	b, err := EncodeBCD(digits, width)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// GBK 写入不定长 GBK 字符串（无长度前缀，通常位于消息体末尾）
func (w *Writer) GBK(s string) error {
	b, err := EncodeGBK(s)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// FixedGBK 写入定长 GBK 字符串，不足补 0x00，超长报错
func (w *Writer) FixedGBK(field, s string, n int) error {
	b, err := EncodeGBK(s)
	if err != nil {
		return err
	}
	if len(b) > n {
		return &FieldError{Field: field, Value: fmt.Sprintf("%d>%d bytes", len(b), n), Kind: ErrStringTooLong}
	}
	w.buf = append(w.buf, b...)
	for i := len(b); i < n; i++ {
		w.buf = append(w.buf, 0x00)
	}
	return nil
}

// LenPrefixedGBK 写入 1 字节长度前缀的 GBK 字符串
func (w *Writer) LenPrefixedGBK(field, s string) error {
	b, err := EncodeGBK(s)
	if err != nil {
		return err
	}
	if len(b) > 0xFF {
		return &FieldError{Field: field, Value: fmt.Sprintf("%d>255 bytes", len(b)), Kind: ErrStringTooLong}
	}
	w.buf = append(w.buf, uint8(len(b)))
	w.buf = append(w.buf, b...)
	return nil
}
