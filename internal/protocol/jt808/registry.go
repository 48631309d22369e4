package jt808

import (
	"fmt"
	"sort"
	"sync"
)

// Descriptor 消息类型描述：ID、名称、最小消息体长度与编解码函数
type Descriptor struct {
	ID     uint16
	Name   string
	MinLen int

	decode func(*Reader) (Message, error)
	encode func(*Writer, Message) error
}

// Registry 消息ID -> 编解码描述，按 16 位ID精确匹配
type Registry struct {
	mu sync.RWMutex
	m  map[uint16]*Descriptor
}

func NewRegistry() *Registry { return &Registry{m: make(map[uint16]*Descriptor)} }

// Register 绑定一对强类型编解码函数，消息ID取自 M 的零值
func Register[M Message](r *Registry, name string, minLen int, dec func(*Reader) (M, error), enc func(*Writer, M) error) {
	var zero M
	id := zero.MessageID()
	d := &Descriptor{
		ID:     id,
		Name:   name,
		MinLen: minLen,
		decode: func(rd *Reader) (Message, error) {
			m, err := dec(rd)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		encode: func(w *Writer, m Message) error {
			v, ok := m.(M)
			if !ok {
				return fmt.Errorf("%w: 0x%04X registered for %T, got %T", ErrMessageIDMismatch, id, zero, m)
			}
			return enc(w, v)
		},
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id] = d
}

// registerEmpty 消息体为空的类型：解码时任何字节都视为长度不符，编码输出零字节
func registerEmpty[M Message](r *Registry, name string) {
	Register(r, name, 0,
		func(rd *Reader) (M, error) {
			var zero M
			return zero, rd.Done()
		},
		func(*Writer, M) error { return nil },
	)
}

// Lookup 查找消息类型
func (r *Registry) Lookup(id uint16) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.m[id]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Name 消息名称，未注册时返回十六进制ID
func (r *Registry) Name(id uint16) string {
	if d, ok := r.Lookup(id); ok {
		return d.Name
	}
	return fmt.Sprintf("0x%04X", id)
}

// IDs 已注册的消息ID（升序）
func (r *Registry) IDs() []uint16 {
	r.mu.RLock()
	ids := make([]uint16, 0, len(r.m))
	for id := range r.m {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DecodeBody 按消息ID解析消息体；未注册的ID返回 *UnknownMessageError（可跳过）
func (r *Registry) DecodeBody(id uint16, body []byte) (Message, error) {
	r.mu.RLock()
	d := r.m[id]
	r.mu.RUnlock()
	if d == nil {
		return nil, &UnknownMessageError{MessageID: id, Body: body}
	}
	if len(body) < d.MinLen {
		return nil, &BodyTooShortError{MessageID: id, Required: d.MinLen, Actual: len(body)}
	}
	return d.decode(NewReader(id, body))
}

// EncodeBody 按 m.MessageID() 编码消息体，超过 1023 字节返回 ErrBodyTooLong
func (r *Registry) EncodeBody(m Message) ([]byte, error) {
	b, err := r.encode(m)
	if err != nil {
		return nil, err
	}
	if len(b) > MaxBodyLength {
		return nil, fmt.Errorf("%w: 0x%04X body %d > %d", ErrBodyTooLong, m.MessageID(), len(b), MaxBodyLength)
	}
	return b, nil
}

// encode 不限制长度，分包编码时使用
func (r *Registry) encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, invalidField("message", nil)
	}
	id := m.MessageID()
	r.mu.RLock()
	d := r.m[id]
	r.mu.RUnlock()
	if d == nil {
		return nil, &UnknownMessageError{MessageID: id}
	}
	w := NewWriter(d.MinLen)
	if err := d.encode(w, m); err != nil {
		return nil, fmt.Errorf("encode 0x%04X: %w", id, err)
	}
	return w.Bytes(), nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry 注册了全部已知消息类型的共享注册表
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerAll(defaultRegistry)
	})
	return defaultRegistry
}

func registerAll(r *Registry) {
	// 终端 -> 平台
	Register(r, "终端通用应答", 5, decodeTerminalCommonResponse, encodeTerminalCommonResponse)
	registerEmpty[TerminalHeartbeat](r, "终端心跳")
	registerEmpty[TerminalLogout](r, "终端注销")
	Register(r, "终端鉴权", 1, decodeTerminalAuthentication, encodeTerminalAuthentication)
	Register(r, "查询终端参数应答", 3, decodeQueryParametersResponse, encodeQueryParametersResponse)
	Register(r, "查询终端属性应答", 48, decodeQueryPropertyResponse, encodeQueryPropertyResponse)
	Register(r, "位置信息汇报", locationBaseLength, decodeLocation, encodeLocation)
	Register(r, "位置信息查询应答", 2+locationBaseLength, decodePositionQueryResponse, encodePositionQueryResponse)
	Register(r, "事件报告", 1, decodeEventReport, encodeEventReport)
	Register(r, "信息点播/取消", 2, decodeInfoDemandCancel, encodeInfoDemandCancel)
	Register(r, "车辆控制应答", 2, decodeVehicleControlResponse, encodeVehicleControlResponse)

	// 平台 -> 终端
	Register(r, "平台通用应答", 5, decodePlatformCommonResponse, encodePlatformCommonResponse)
	Register(r, "补传分包请求", 3, decodeResendSubpackageRequest, encodeResendSubpackageRequest)
	Register(r, "终端注册应答", 3, decodeTerminalRegisterResponse, encodeTerminalRegisterResponse)
	Register(r, "设置终端参数", 1, decodeSetTerminalParameters, encodeSetTerminalParameters)
	registerEmpty[QueryTerminalParameters](r, "查询终端参数")
	Register(r, "查询指定终端参数", 1, decodeQuerySpecifiedParameters, encodeQuerySpecifiedParameters)
	registerEmpty[QueryTerminalProperty](r, "查询终端属性")
	registerEmpty[PositionInfoQuery](r, "位置信息查询")
	Register(r, "文本信息下发", 1, decodeTextMessage, encodeTextMessage)
	Register(r, "电话回拨", 1, decodePhoneCallback, encodePhoneCallback)
	Register(r, "车辆控制", 1, decodeVehicleControl, encodeVehicleControl)
	registerEmpty[DriverIdentityRequest](r, "上报驾驶员身份信息请求")
	Register(r, "单条存储多媒体数据检索上传", 5, decodeSingleMultimediaUpload, encodeSingleMultimediaUpload)
}
