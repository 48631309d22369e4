package jt808

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// EncodeBCD 十进制数字串编码为 width 字节 BCD，左侧补 0
func EncodeBCD(digits string, width int) ([]byte, error) {
	if len(digits) > width*2 {
		return nil, &FieldError{Field: "bcd", Value: digits, Kind: ErrStringTooLong}
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return nil, invalidField("bcd", digits)
		}
	}
	padded := strings.Repeat("0", width*2-len(digits)) + digits
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = (padded[2*i]-'0')<<4 | (padded[2*i+1] - '0')
	}
	return out, nil
}

// DecodeBCD BCD 解码为定宽十进制数字串，出现非 0-9 半字节时报错
func DecodeBCD(b []byte) (string, error) {
	out := make([]byte, 0, len(b)*2)
	for _, v := range b {
		hi, lo := v>>4, v&0x0F
		if hi > 9 || lo > 9 {
			return "", invalidField("bcd", fmt.Sprintf("0x%02X", v))
		}
		out = append(out, '0'+hi, '0'+lo)
	}
	return string(out), nil
}

// EncodeGBK 协议中 STRING 类型统一使用 GBK 编码
func EncodeGBK(s string) ([]byte, error) {
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode gbk: %w", err)
	}
	return b, nil
}

// DecodeGBK GBK 字节解码为 UTF-8 字符串
func DecodeGBK(b []byte) (string, error) {
	s, err := simplifiedchinese.GBK.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode gbk: %w", err)
	}
	return string(s), nil
}
