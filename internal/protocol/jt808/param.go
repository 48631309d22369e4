package jt808

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// 常用终端参数ID
const (
	ParamHeartbeatInterval     uint32 = 0x0001 // 终端心跳发送间隔(s) DWORD
	ParamTCPResponseTimeout    uint32 = 0x0002 // TCP 消息应答超时时间(s) DWORD
	ParamTCPRetransmitCount    uint32 = 0x0003 // TCP 消息重传次数 DWORD
	ParamMainServerAddress     uint32 = 0x0013 // 主服务器地址 STRING
	ParamServerTCPPort         uint32 = 0x0018 // 服务器 TCP 端口 DWORD
	ParamDefaultReportInterval uint32 = 0x0029 // 缺省时间汇报间隔(s) DWORD
	ParamMaxSpeed              uint32 = 0x0055 // 最高速度(km/h) DWORD
	ParamPlateNumber           uint32 = 0x0083 // 机动车号牌 STRING
	ParamPlateColor            uint32 = 0x0084 // 车牌颜色 BYTE
)

// ParameterItem 终端参数项：原始字节为准，类型解释由调用方选择
type ParameterItem struct {
	ID    uint32
	Value []byte
}

func Uint32Param(id uint32, v uint32) ParameterItem {
	return ParameterItem{ID: id, Value: binary.BigEndian.AppendUint32(nil, v)}
}

func Uint16Param(id uint32, v uint16) ParameterItem {
	return ParameterItem{ID: id, Value: binary.BigEndian.AppendUint16(nil, v)}
}

func Uint8Param(id uint32, v uint8) ParameterItem {
	return ParameterItem{ID: id, Value: []byte{v}}
}

// TextParam 字符串参数（GBK）
func TextParam(id uint32, s string) (ParameterItem, error) {
	b, err := EncodeGBK(s)
	if err != nil {
		return ParameterItem{}, err
	}
	return ParameterItem{ID: id, Value: b}, nil
}

func (p ParameterItem) Uint32() (uint32, error) {
	if len(p.Value) != 4 {
		return 0, p.sizeError(4)
	}
	return binary.BigEndian.Uint32(p.Value), nil
}

func (p ParameterItem) Uint16() (uint16, error) {
	if len(p.Value) != 2 {
		return 0, p.sizeError(2)
	}
	return binary.BigEndian.Uint16(p.Value), nil
}

func (p ParameterItem) Uint8() (uint8, error) {
	if len(p.Value) != 1 {
		return 0, p.sizeError(1)
	}
	return p.Value[0], nil
}

// Text 按 GBK 字符串解释
func (p ParameterItem) Text() (string, error) {
	return DecodeGBK(trimZero(p.Value))
}

// Equal 参数ID与原始字节均相同
func (p ParameterItem) Equal(o ParameterItem) bool {
	return p.ID == o.ID && bytes.Equal(p.Value, o.Value)
}

// Key 可作为 map 键的规范表示
func (p ParameterItem) Key() string {
	return fmt.Sprintf("%08X:%s", p.ID, hex.EncodeToString(p.Value))
}

func (p ParameterItem) sizeError(want int) error {
	return invalidField(fmt.Sprintf("param 0x%04X", p.ID), fmt.Sprintf("%d bytes, want %d", len(p.Value), want))
}

func readParameterItems(r *Reader, n int) ([]ParameterItem, error) {
	items := make([]ParameterItem, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		l, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		v, err := r.Bytes(int(l))
		if err != nil {
			return nil, err
		}
		items = append(items, ParameterItem{ID: id, Value: v})
	}
	return items, nil
}

func writeParameterItems(w *Writer, items []ParameterItem) error {
	if len(items) > 0xFF {
		return invalidField("param_count", len(items))
	}
	w.Uint8(uint8(len(items)))
	for _, p := range items {
		if len(p.Value) > 0xFF {
			return &FieldError{Field: fmt.Sprintf("param 0x%04X", p.ID), Value: len(p.Value), Kind: ErrStringTooLong}
		}
		w.Uint32(p.ID)
		w.Uint8(uint8(len(p.Value)))
		w.Write(p.Value)
	}
	return nil
}
