package jt808

import (
	"github.com/imroc/biu"
)

// 消息体属性位定义
//
//	15     14      13       12-10     9-0
//	保留  版本标识  分包    加密方式   消息体长度
const (
	propBodyLengthMask  uint16 = 0x03FF
	propEncryptionMask  uint16 = 0x1C00
	propEncryptionShift        = 10
	propSubpackageBit   uint16 = 1 << 13
	propVersionBit      uint16 = 1 << 14
	propReservedBit     uint16 = 1 << 15

	// MaxBodyLength 单包消息体最大长度（10 bit）
	MaxBodyLength = 1023
)

// 加密方式
const (
	EncryptionNone uint8 = 0x00
	EncryptionRSA  uint8 = 0x01
)

// Property 消息体属性字（16 bit 位域）
type Property uint16

// BodyLength 消息体长度（bit0-9）
func (p Property) BodyLength() int { return int(uint16(p) & propBodyLengthMask) }

// Encryption 加密方式（bit10-12）
func (p Property) Encryption() uint8 {
	return uint8((uint16(p) & propEncryptionMask) >> propEncryptionShift)
}

// Subpackage 是否分包（bit13）
func (p Property) Subpackage() bool { return uint16(p)&propSubpackageBit != 0 }

// VersionFlag 2019 版本标识（bit14）
func (p Property) VersionFlag() bool { return uint16(p)&propVersionBit != 0 }

// Reserved 保留位（bit15）
func (p Property) Reserved() bool { return uint16(p)&propReservedBit != 0 }

// WithBodyLength 仅替换长度位，n 超出 10 bit 时截断
func (p Property) WithBodyLength(n int) Property {
	return Property(uint16(p)&^propBodyLengthMask | uint16(n)&propBodyLengthMask)
}

// WithEncryption 仅替换加密方式位
func (p Property) WithEncryption(e uint8) Property {
	return Property(uint16(p)&^propEncryptionMask | (uint16(e)<<propEncryptionShift)&propEncryptionMask)
}

// WithSubpackage 仅替换分包位
func (p Property) WithSubpackage(on bool) Property {
	return p.withBit(propSubpackageBit, on)
}

// WithVersionFlag 仅替换版本标识位
func (p Property) WithVersionFlag(on bool) Property {
	return p.withBit(propVersionBit, on)
}

// WithReserved 仅替换保留位
func (p Property) WithReserved(on bool) Property {
	return p.withBit(propReservedBit, on)
}

func (p Property) withBit(bit uint16, on bool) Property {
	if on {
		return Property(uint16(p) | bit)
	}
	return Property(uint16(p) &^ bit)
}

// String 二进制位串，便于日志排查
func (p Property) String() string {
	return biu.ToBinaryString(byte(p>>8)) + biu.ToBinaryString(byte(p))
}
