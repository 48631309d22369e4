package jt808

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version 协议版本选择（由外层帧格式决定，随字节一并传入）
type Version uint8

const (
	// VersionAuto 依据属性字 bit14 判断：置位为 2019 版，否则为 2013 版
	VersionAuto Version = iota
	Version2013
	Version2019
)

func (v Version) String() string {
	switch v {
	case Version2013:
		return "2013"
	case Version2019:
		return "2019"
	default:
		return "auto"
	}
}

// ParseVersion 解析配置中的版本字符串
func ParseVersion(s string) (Version, error) {
	switch s {
	case "", "auto":
		return VersionAuto, nil
	case "2013", "2011":
		return Version2013, nil
	case "2019":
		return Version2019, nil
	}
	return VersionAuto, fmt.Errorf("unknown jt808 version %q", s)
}

// 终端手机号 BCD 字节数
const (
	PhoneBytes2013 = 6
	PhoneBytes2019 = 10
)

// PackageInfo 消息包封装项，仅分包消息存在
type PackageInfo struct {
	Total    uint16 // 消息总包数
	Sequence uint16 // 包序号，从 1 开始
}

// Validate 总包数 >= 1 且 1 <= 包序号 <= 总包数
func (p PackageInfo) Validate() error {
	if p.Total == 0 {
		return invalidField("package.total", p.Total)
	}
	if p.Sequence == 0 || p.Sequence > p.Total {
		return invalidField("package.sequence", p.Sequence)
	}
	return nil
}

// Header 消息头
type Header struct {
	MessageID       uint16
	Property        Property
	ProtocolVersion uint8  // 仅 2019 版存在
	PhoneNumber     string // 终端手机号（定宽数字串）
	SerialNumber    uint16
	Package         *PackageInfo // 当且仅当分包位为 1 时存在
}

// Is2019 按版本选择判断是否使用 2019 版头部格式
func (h Header) Is2019(v Version) bool {
	switch v {
	case Version2019:
		return true
	case Version2013:
		return false
	default:
		return h.Property.VersionFlag()
	}
}

// HeaderLength 头部字节数
func HeaderLength(is2019, subpackage bool) int {
	n := 2 + 2 + PhoneBytes2013 + 2
	if is2019 {
		n = 2 + 2 + 1 + PhoneBytes2019 + 2
	}
	if subpackage {
		n += 4
	}
	return n
}

// DecodeHeader 从 b 解析消息头，返回头部与消耗的字节数
func DecodeHeader(b []byte, v Version) (Header, int, error) {
	if len(b) < 4 {
		return Header{}, 0, fmt.Errorf("%w: need 4 bytes, got %d", ErrTruncatedHeader, len(b))
	}
	h := Header{
		MessageID: binary.BigEndian.Uint16(b[0:2]),
		Property:  Property(binary.BigEndian.Uint16(b[2:4])),
	}
	is2019 := h.Is2019(v)
	need := HeaderLength(is2019, h.Property.Subpackage())
	if len(b) < need {
		return Header{}, 0, fmt.Errorf("%w: 0x%04X need %d bytes, got %d", ErrTruncatedHeader, h.MessageID, need, len(b))
	}

	r := NewReader(h.MessageID, b[4:need])
	phoneLen := PhoneBytes2013
	if is2019 {
		h.ProtocolVersion, _ = r.Uint8()
		phoneLen = PhoneBytes2019
	}
	phone, err := r.BCD(phoneLen)
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: %v", ErrMalformedPhoneNumber, err)
	}
	h.PhoneNumber = phone
	h.SerialNumber, _ = r.Uint16()
	if h.Property.Subpackage() {
		total, _ := r.Uint16()
		seq, _ := r.Uint16()
		h.Package = &PackageInfo{Total: total, Sequence: seq}
	}
	return h, need, nil
}

// EncodeHeader 编码消息头。长度位由 bodyLen 重新计算，分包位由 Package 是否存在决定，
// 其余位（加密方式、保留位）沿用 h.Property
func EncodeHeader(h Header, bodyLen int, v Version) ([]byte, error) {
	if bodyLen < 0 || bodyLen > MaxBodyLength {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLong, bodyLen, MaxBodyLength)
	}
	if h.Package != nil {
		if err := h.Package.Validate(); err != nil {
			return nil, err
		}
	}
	is2019 := h.Is2019(v)
	prop := h.Property.WithBodyLength(bodyLen).WithSubpackage(h.Package != nil).WithVersionFlag(is2019)

	phoneLen := PhoneBytes2013
	if is2019 {
		phoneLen = PhoneBytes2019
	}
	phone, err := EncodeBCD(h.PhoneNumber, phoneLen)
	if err != nil {
		if errors.Is(err, ErrStringTooLong) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPhoneNumber, err)
	}

	w := NewWriter(HeaderLength(is2019, h.Package != nil))
	w.Uint16(h.MessageID)
	w.Uint16(uint16(prop))
	if is2019 {
		w.Uint8(h.ProtocolVersion)
	}
	w.Write(phone)
	w.Uint16(h.SerialNumber)
	if h.Package != nil {
		w.Uint16(h.Package.Total)
		w.Uint16(h.Package.Sequence)
	}
	return w.Bytes(), nil
}
