package jt808

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLocation() LocationReport {
	return LocationReport{
		Alarm:     0x00000001,
		Status:    0x00000002,
		Latitude:  22543096,
		Longitude: 114057865,
		Altitude:  35,
		Speed:     600,
		Direction: 90,
		Time:      "240315083000",
		Extras: []LocationExtra{
			{ID: ExtraMileage, Value: []byte{0x00, 0x00, 0x30, 0x39}},
			{ID: ExtraSatellites, Value: []byte{12}},
		},
	}
}

func TestRegistry_BodyRoundTrip(t *testing.T) {
	loc := sampleLocation()
	hw, _ := TextParam(ParamMainServerAddress, "gw.example.com")

	tests := []struct {
		name string
		msg  Message
	}{
		{"终端通用应答", TerminalCommonResponse{ResponseSerialNumber: 100, ResponseMessageID: MsgVehicleControl, Result: TerminalResultUnsupported}},
		{"终端心跳", TerminalHeartbeat{}},
		{"终端注销", TerminalLogout{}},
		{"终端鉴权", TerminalAuthentication{AuthCode: "AUTH-0001"}},
		{"查询终端参数应答", QueryParametersResponse{ResponseSerialNumber: 3, Items: []ParameterItem{Uint32Param(ParamHeartbeatInterval, 30), hw}}},
		{"查询终端属性应答", QueryPropertyResponse{
			TerminalType:    0x0006,
			ManufacturerID:  "70111",
			Model:           "北斗终端-M1",
			TerminalID:      "T000001",
			ICCID:           "89860012345678901234",
			HardwareVersion: "HW1.0",
			FirmwareVersion: "FW2.3.1",
			GNSSProperty:    0x03,
			CommProperty:    0x01,
		}},
		{"位置信息汇报", loc},
		{"位置信息汇报无附加信息", LocationReport{Latitude: 1, Longitude: 2, Time: "240101000000"}},
		{"位置信息查询应答", PositionQueryResponse{ResponseSerialNumber: 8, Location: loc}},
		{"事件报告", EventReport{EventID: 3}},
		{"信息点播", InfoDemandCancel{InfoType: 2, Flag: InfoDemand}},
		{"信息取消", InfoDemandCancel{InfoType: 2, Flag: InfoCancel}},
		{"车辆控制应答无位置", VehicleControlResponse{ResponseSerialNumber: 5}},
		{"车辆控制应答带位置", VehicleControlResponse{ResponseSerialNumber: 5, Location: &loc}},
		{"平台通用应答", PlatformCommonResponse{ResponseSerialNumber: 1, ResponseMessageID: MsgLocationReport, Result: PlatformResultAlarmConfirm}},
		{"补传分包请求", ResendSubpackageRequest{OriginalSerialNumber: 10, PackageIDs: []uint16{2, 3}}},
		{"终端注册应答成功", TerminalRegisterResponse{ResponseSerialNumber: 1, Result: RegisterSuccess, AuthCode: "ABC123"}},
		{"终端注册应答失败", TerminalRegisterResponse{ResponseSerialNumber: 1, Result: RegisterNoSuchTerminal}},
		{"设置终端参数", SetTerminalParameters{Items: []ParameterItem{Uint32Param(ParamHeartbeatInterval, 60), Uint8Param(ParamPlateColor, 2)}}},
		{"查询终端参数", QueryTerminalParameters{}},
		{"查询指定终端参数", QuerySpecifiedParameters{IDs: []uint32{ParamHeartbeatInterval, ParamMainServerAddress}}},
		{"查询终端属性", QueryTerminalProperty{}},
		{"位置信息查询", PositionInfoQuery{}},
		{"文本信息下发", TextMessage{Flag: TextFlagDisplay | TextFlagTTS, Text: "前方路段拥堵"}},
		{"电话回拨", PhoneCallback{Flag: CallbackMonitor, PhoneNumber: "13800138000"}},
		{"车辆控制", VehicleControl{ControlFlag: 1}},
		{"驾驶员身份信息请求", DriverIdentityRequest{}},
		{"单条多媒体上传", SingleMultimediaUpload{MultimediaID: 7, Delete: DeleteRemove}},
	}

	reg := DefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := reg.EncodeBody(tt.msg)
			require.NoError(t, err)
			got, err := reg.DecodeBody(tt.msg.MessageID(), b)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestRegistry_AllVariantsRegistered(t *testing.T) {
	want := []uint16{
		0x0001, 0x0002, 0x0003, 0x0102, 0x0104, 0x0107, 0x0200, 0x0201, 0x0301, 0x0303, 0x0500,
		0x8001, 0x8003, 0x8100, 0x8103, 0x8104, 0x8106, 0x8107, 0x8201, 0x8300, 0x8400, 0x8500, 0x8702, 0x8805,
	}
	assert.Equal(t, want, DefaultRegistry().IDs())
	assert.Equal(t, "位置信息汇报", DefaultRegistry().Name(MsgLocationReport))
	assert.Equal(t, "0x0F0F", DefaultRegistry().Name(0x0F0F))
}

func TestTerminalCommonResponse_Wire(t *testing.T) {
	b, err := DefaultRegistry().EncodeBody(TerminalCommonResponse{
		ResponseSerialNumber: 100,
		ResponseMessageID:    0x0102,
		Result:               TerminalResultSuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x64, 0x01, 0x02, 0x00}, b)
}

func TestVehicleControl_DoorFlag(t *testing.T) {
	reg := DefaultRegistry()

	m, err := reg.DecodeBody(MsgVehicleControl, []byte{0x01})
	require.NoError(t, err)
	vc := m.(VehicleControl)
	assert.True(t, vc.IsDoorLock())
	assert.False(t, vc.IsDoorUnlock())

	m, err = reg.DecodeBody(MsgVehicleControl, []byte{0x00})
	require.NoError(t, err)
	vc = m.(VehicleControl)
	assert.True(t, vc.IsDoorUnlock())
	assert.False(t, vc.IsDoorLock())

	assert.True(t, NewDoorControl(true).IsDoorLock())
	assert.True(t, NewDoorControl(false).IsDoorUnlock())
}

func TestSingleMultimediaUpload_Validation(t *testing.T) {
	_, err := NewSingleMultimediaUpload(0, DeleteKeep)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = NewSingleMultimediaUpload(1, DeleteFlag(2))
	assert.ErrorIs(t, err, ErrInvalidEnumValue)

	m, err := NewSingleMultimediaUpload(9, DeleteRemove)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), m.MultimediaID)

	reg := DefaultRegistry()
	_, err = reg.DecodeBody(MsgSingleMultimediaUpload, []byte{0x00, 0x00, 0x00, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = reg.DecodeBody(MsgSingleMultimediaUpload, []byte{0x00, 0x00, 0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidEnumValue)

	_, err = reg.EncodeBody(SingleMultimediaUpload{})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestEmptyBodyMessages(t *testing.T) {
	reg := DefaultRegistry()
	for _, m := range []Message{
		TerminalHeartbeat{}, TerminalLogout{}, QueryTerminalParameters{},
		QueryTerminalProperty{}, PositionInfoQuery{}, DriverIdentityRequest{},
	} {
		b, err := reg.EncodeBody(m)
		require.NoError(t, err)
		assert.Empty(t, b, "0x%04X", m.MessageID())

		_, err = reg.DecodeBody(m.MessageID(), []byte{0x00})
		assert.ErrorIs(t, err, ErrBodyLengthMismatch, "0x%04X", m.MessageID())

		got, err := reg.DecodeBody(m.MessageID(), nil)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestRegistry_DecodeErrors(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("未知消息类型", func(t *testing.T) {
		body := []byte{0x01, 0x02, 0x03}
		m, err := reg.DecodeBody(0x0F0F, body)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrUnknownMessageType)
		assert.True(t, IsSoft(err))

		var ue *UnknownMessageError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, uint16(0x0F0F), ue.MessageID)
		assert.Equal(t, body, ue.Body)
	})

	t.Run("消息体过短", func(t *testing.T) {
		_, err := reg.DecodeBody(MsgTerminalCommonResponse, []byte{0x00, 0x01})
		assert.ErrorIs(t, err, ErrBodyTooShort)
		assert.False(t, IsSoft(err))

		var se *BodyTooShortError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 5, se.Required)
		assert.Equal(t, 2, se.Actual)
	})

	t.Run("定长消息多余字节", func(t *testing.T) {
		_, err := reg.DecodeBody(MsgTerminalCommonResponse, []byte{0x00, 0x01, 0x02, 0x00, 0x00, 0xFF})
		assert.ErrorIs(t, err, ErrBodyLengthMismatch)
	})

	t.Run("参数项长度越界", func(t *testing.T) {
		// 1 个参数项，声明长度 4 但仅有 2 字节
		_, err := reg.DecodeBody(MsgSetTerminalParameters, []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x04, 0x00, 0x1E})
		assert.ErrorIs(t, err, ErrBodyTooShort)
	})

	t.Run("位置附加信息截断", func(t *testing.T) {
		b, err := reg.EncodeBody(sampleLocation())
		require.NoError(t, err)
		_, err = reg.DecodeBody(MsgLocationReport, b[:len(b)-1])
		assert.ErrorIs(t, err, ErrBodyTooShort)
	})

	t.Run("点播标志非法", func(t *testing.T) {
		_, err := reg.DecodeBody(MsgInfoDemandCancel, []byte{0x01, 0x02})
		assert.ErrorIs(t, err, ErrInvalidEnumValue)
	})

	t.Run("回拨标志非法", func(t *testing.T) {
		_, err := reg.DecodeBody(MsgPhoneCallback, []byte{0x05, '1', '0'})
		assert.ErrorIs(t, err, ErrInvalidEnumValue)
	})

	t.Run("位置时间非BCD", func(t *testing.T) {
		b, err := reg.EncodeBody(LocationReport{Time: "240101000000"})
		require.NoError(t, err)
		b[27] = 0xFF
		_, err = reg.DecodeBody(MsgLocationReport, b)
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})
}

func TestRegistry_EncodeErrors(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("回拨号码过长", func(t *testing.T) {
		_, err := reg.EncodeBody(PhoneCallback{PhoneNumber: "123456789012345678901"})
		assert.ErrorIs(t, err, ErrStringTooLong)
	})

	t.Run("回拨号码按GBK字节计长", func(t *testing.T) {
		// 7 个汉字：UTF-8 21 字节，GBK 14 字节
		m := PhoneCallback{Flag: CallbackNormal, PhoneNumber: "总机转分机一号"}
		body, err := reg.EncodeBody(m)
		require.NoError(t, err)
		assert.Len(t, body, 15)
		got, err := reg.DecodeBody(MsgPhoneCallback, body)
		require.NoError(t, err)
		assert.Equal(t, m, got)

		// 11 个汉字：GBK 22 字节
		_, err = reg.EncodeBody(PhoneCallback{PhoneNumber: "一二三四五六七八九十百"})
		assert.ErrorIs(t, err, ErrStringTooLong)
	})

	t.Run("定长字段过长", func(t *testing.T) {
		_, err := reg.EncodeBody(QueryPropertyResponse{ManufacturerID: "123456", ICCID: "1"})
		assert.ErrorIs(t, err, ErrStringTooLong)
	})

	t.Run("鉴权码为空", func(t *testing.T) {
		_, err := reg.EncodeBody(TerminalAuthentication{})
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})

	t.Run("消息体超过1023字节", func(t *testing.T) {
		loc := LocationReport{Time: "240101000000"}
		for i := 0; i < 5; i++ {
			loc.Extras = append(loc.Extras, LocationExtra{ID: 0xE0, Value: make([]byte, 250)})
		}
		_, err := reg.EncodeBody(loc)
		assert.ErrorIs(t, err, ErrBodyTooLong)
	})

	t.Run("未注册的类型", func(t *testing.T) {
		empty := NewRegistry()
		_, err := empty.EncodeBody(TerminalHeartbeat{})
		assert.ErrorIs(t, err, ErrUnknownMessageType)
	})

	t.Run("空消息", func(t *testing.T) {
		_, err := reg.EncodeBody(nil)
		assert.ErrorIs(t, err, ErrInvalidFieldValue)
	})
}

func TestRegistry_MismatchedType(t *testing.T) {
	r := NewRegistry()
	Register(r, "终端心跳", 0,
		func(rd *Reader) (TerminalHeartbeat, error) { return TerminalHeartbeat{}, rd.Done() },
		func(*Writer, TerminalHeartbeat) error { return nil },
	)
	d, ok := r.Lookup(MsgTerminalHeartbeat)
	require.True(t, ok)
	err := d.encode(NewWriter(0), TerminalLogout{})
	assert.ErrorIs(t, err, ErrMessageIDMismatch)
}

func TestResultDescriptions(t *testing.T) {
	assert.Equal(t, "unsupported", TerminalResultUnsupported.String())
	assert.Equal(t, "alarm confirmed", PlatformResultAlarmConfirm.String())
	assert.Equal(t, "terminal not found", RegisterNoSuchTerminal.String())
	assert.Equal(t, "unknown(0x09)", TerminalResult(9).String())
	assert.True(t, IsUplink(MsgLocationReport))
	assert.False(t, IsUplink(MsgPlatformCommonResponse))
}
