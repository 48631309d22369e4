package jt808

import "fmt"

// PlatformCommonResponse 平台通用应答 0x8001
type PlatformCommonResponse struct {
	ResponseSerialNumber uint16 // 对应终端消息流水号
	ResponseMessageID    uint16 // 对应终端消息ID
	Result               PlatformResult
}

func (PlatformCommonResponse) MessageID() uint16 { return MsgPlatformCommonResponse }
func (PlatformCommonResponse) isMessage()        {}

// IsSuccess 结果为成功/确认
func (m PlatformCommonResponse) IsSuccess() bool { return m.Result == PlatformResultSuccess }

func decodePlatformCommonResponse(r *Reader) (PlatformCommonResponse, error) {
	var m PlatformCommonResponse
	var err error
	if m.ResponseSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	if m.ResponseMessageID, err = r.Uint16(); err != nil {
		return m, err
	}
	res, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.Result = PlatformResult(res)
	return m, r.Done()
}

func encodePlatformCommonResponse(w *Writer, m PlatformCommonResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	w.Uint16(m.ResponseMessageID)
	w.Uint8(uint8(m.Result))
	return nil
}

// ResendSubpackageRequest 补传分包请求 0x8003
type ResendSubpackageRequest struct {
	OriginalSerialNumber uint16   // 原始消息第一包的流水号
	PackageIDs           []uint16 // 需要重传的包序号
}

func (ResendSubpackageRequest) MessageID() uint16 { return MsgResendSubpackageRequest }
func (ResendSubpackageRequest) isMessage()        {}

func decodeResendSubpackageRequest(r *Reader) (ResendSubpackageRequest, error) {
	var m ResendSubpackageRequest
	var err error
	if m.OriginalSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	n, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.PackageIDs = make([]uint16, 0, n)
	for i := 0; i < int(n); i++ {
		id, err := r.Uint16()
		if err != nil {
			return m, err
		}
		m.PackageIDs = append(m.PackageIDs, id)
	}
	return m, r.Done()
}

func encodeResendSubpackageRequest(w *Writer, m ResendSubpackageRequest) error {
	if len(m.PackageIDs) > 0xFF {
		return invalidField("package_ids", len(m.PackageIDs))
	}
	w.Uint16(m.OriginalSerialNumber)
	w.Uint8(uint8(len(m.PackageIDs)))
	for _, id := range m.PackageIDs {
		w.Uint16(id)
	}
	return nil
}

// TerminalRegisterResponse 终端注册应答 0x8100
// 鉴权码仅在结果为成功时存在
type TerminalRegisterResponse struct {
	ResponseSerialNumber uint16
	Result               RegisterResult
	AuthCode             string
}

func (TerminalRegisterResponse) MessageID() uint16 { return MsgTerminalRegisterResponse }
func (TerminalRegisterResponse) isMessage()        {}

func decodeTerminalRegisterResponse(r *Reader) (TerminalRegisterResponse, error) {
	var m TerminalRegisterResponse
	var err error
	if m.ResponseSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	res, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.Result = RegisterResult(res)
	if m.Result != RegisterSuccess {
		return m, r.Done()
	}
	m.AuthCode, err = DecodeGBK(r.Rest())
	return m, err
}

func encodeTerminalRegisterResponse(w *Writer, m TerminalRegisterResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	w.Uint8(uint8(m.Result))
	if m.Result != RegisterSuccess {
		return nil
	}
	return w.GBK(m.AuthCode)
}

// 文本信息标志位
const (
	TextFlagEmergency uint8 = 1 << 0 // 紧急
	TextFlagDisplay   uint8 = 1 << 2 // 终端显示器显示
	TextFlagTTS       uint8 = 1 << 3 // 终端 TTS 播读
	TextFlagAdvert    uint8 = 1 << 4 // 广告屏显示
)

// TextMessage 文本信息下发 0x8300
type TextMessage struct {
	Flag uint8
	Text string
}

func (TextMessage) MessageID() uint16 { return MsgTextMessage }
func (TextMessage) isMessage()        {}

func decodeTextMessage(r *Reader) (TextMessage, error) {
	var m TextMessage
	var err error
	if m.Flag, err = r.Uint8(); err != nil {
		return m, err
	}
	m.Text, err = DecodeGBK(r.Rest())
	return m, err
}

func encodeTextMessage(w *Writer, m TextMessage) error {
	w.Uint8(m.Flag)
	return w.GBK(m.Text)
}

// CallbackFlag 电话回拨标志
type CallbackFlag uint8

const (
	CallbackNormal  CallbackFlag = 0 // 普通通话
	CallbackMonitor CallbackFlag = 1 // 监听
)

func (f CallbackFlag) valid() bool { return f == CallbackNormal || f == CallbackMonitor }

// 电话号码最长 20 字节
const maxCallbackPhoneLength = 20

// PhoneCallback 电话回拨 0x8400
type PhoneCallback struct {
	Flag        CallbackFlag
	PhoneNumber string
}

func (PhoneCallback) MessageID() uint16 { return MsgPhoneCallback }
func (PhoneCallback) isMessage()        {}

// IsMonitor 监听模式
func (m PhoneCallback) IsMonitor() bool { return m.Flag == CallbackMonitor }

func decodePhoneCallback(r *Reader) (PhoneCallback, error) {
	var m PhoneCallback
	flag, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.Flag = CallbackFlag(flag)
	if !m.Flag.valid() {
		return m, invalidEnum("callback_flag", flag)
	}
	rest := r.Rest()
	if len(rest) > maxCallbackPhoneLength {
		return m, &FieldError{Field: "phone_number", Value: len(rest), Kind: ErrStringTooLong}
	}
	m.PhoneNumber, err = DecodeGBK(rest)
	return m, err
}

func encodePhoneCallback(w *Writer, m PhoneCallback) error {
	if !m.Flag.valid() {
		return invalidEnum("callback_flag", uint8(m.Flag))
	}
	b, err := EncodeGBK(m.PhoneNumber)
	if err != nil {
		return err
	}
	if len(b) > maxCallbackPhoneLength {
		return &FieldError{Field: "phone_number", Value: fmt.Sprintf("%d>%d bytes", len(b), maxCallbackPhoneLength), Kind: ErrStringTooLong}
	}
	w.Uint8(uint8(m.Flag))
	w.Write(b)
	return nil
}

// 车辆控制标志位 bit0：0 车门解锁，1 车门加锁
const controlDoorLockBit uint8 = 1 << 0

// VehicleControl 车辆控制 0x8500
type VehicleControl struct {
	ControlFlag uint8
}

func (VehicleControl) MessageID() uint16 { return MsgVehicleControl }
func (VehicleControl) isMessage()        {}

// NewDoorControl 构造车门加锁/解锁指令
func NewDoorControl(lock bool) VehicleControl {
	if lock {
		return VehicleControl{ControlFlag: controlDoorLockBit}
	}
	return VehicleControl{}
}

func (m VehicleControl) IsDoorLock() bool { return m.ControlFlag&controlDoorLockBit != 0 }

func (m VehicleControl) IsDoorUnlock() bool { return !m.IsDoorLock() }

func decodeVehicleControl(r *Reader) (VehicleControl, error) {
	flag, err := r.Uint8()
	if err != nil {
		return VehicleControl{}, err
	}
	return VehicleControl{ControlFlag: flag}, r.Done()
}

func encodeVehicleControl(w *Writer, m VehicleControl) error {
	w.Uint8(m.ControlFlag)
	return nil
}

// PositionInfoQuery 位置信息查询 0x8201，消息体为空
type PositionInfoQuery struct{}

func (PositionInfoQuery) MessageID() uint16 { return MsgPositionInfoQuery }
func (PositionInfoQuery) isMessage()        {}

// DriverIdentityRequest 上报驾驶员身份信息请求 0x8702，消息体为空
type DriverIdentityRequest struct{}

func (DriverIdentityRequest) MessageID() uint16 { return MsgDriverIdentityRequest }
func (DriverIdentityRequest) isMessage()        {}

// DeleteFlag 多媒体删除标志
type DeleteFlag uint8

const (
	DeleteKeep   DeleteFlag = 0 // 保留
	DeleteRemove DeleteFlag = 1 // 删除
)

func (f DeleteFlag) valid() bool { return f == DeleteKeep || f == DeleteRemove }

// SingleMultimediaUpload 单条存储多媒体数据检索上传命令 0x8805
type SingleMultimediaUpload struct {
	MultimediaID uint32 // > 0
	Delete       DeleteFlag
}

func (SingleMultimediaUpload) MessageID() uint16 { return MsgSingleMultimediaUpload }
func (SingleMultimediaUpload) isMessage()        {}

// NewSingleMultimediaUpload 构造并校验 0x8805
func NewSingleMultimediaUpload(id uint32, del DeleteFlag) (SingleMultimediaUpload, error) {
	m := SingleMultimediaUpload{MultimediaID: id, Delete: del}
	return m, m.Validate()
}

// Validate 多媒体ID必须大于0，删除标志仅 0/1
func (m SingleMultimediaUpload) Validate() error {
	if m.MultimediaID == 0 {
		return invalidField("multimedia_id", m.MultimediaID)
	}
	if !m.Delete.valid() {
		return invalidEnum("delete_flag", uint8(m.Delete))
	}
	return nil
}

func decodeSingleMultimediaUpload(r *Reader) (SingleMultimediaUpload, error) {
	var m SingleMultimediaUpload
	var err error
	if m.MultimediaID, err = r.Uint32(); err != nil {
		return m, err
	}
	flag, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.Delete = DeleteFlag(flag)
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, r.Done()
}

func encodeSingleMultimediaUpload(w *Writer, m SingleMultimediaUpload) error {
	if err := m.Validate(); err != nil {
		return err
	}
	w.Uint32(m.MultimediaID)
	w.Uint8(uint8(m.Delete))
	return nil
}
