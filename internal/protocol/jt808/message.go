package jt808

import "fmt"

// 消息ID
const (
	MsgTerminalCommonResponse   uint16 = 0x0001 // 终端通用应答
	MsgTerminalHeartbeat        uint16 = 0x0002 // 终端心跳
	MsgTerminalLogout           uint16 = 0x0003 // 终端注销
	MsgTerminalAuthentication   uint16 = 0x0102 // 终端鉴权
	MsgQueryParametersResponse  uint16 = 0x0104 // 查询终端参数应答
	MsgQueryPropertyResponse    uint16 = 0x0107 // 查询终端属性应答
	MsgLocationReport           uint16 = 0x0200 // 位置信息汇报
	MsgPositionQueryResponse    uint16 = 0x0201 // 位置信息查询应答
	MsgEventReport              uint16 = 0x0301 // 事件报告
	MsgInfoDemandCancel         uint16 = 0x0303 // 信息点播/取消
	MsgVehicleControlResponse   uint16 = 0x0500 // 车辆控制应答
	MsgPlatformCommonResponse   uint16 = 0x8001 // 平台通用应答
	MsgResendSubpackageRequest  uint16 = 0x8003 // 补传分包请求
	MsgTerminalRegisterResponse uint16 = 0x8100 // 终端注册应答
	MsgSetTerminalParameters    uint16 = 0x8103 // 设置终端参数
	MsgQueryTerminalParameters  uint16 = 0x8104 // 查询终端参数
	MsgQuerySpecifiedParameters uint16 = 0x8106 // 查询指定终端参数
	MsgQueryTerminalProperty    uint16 = 0x8107 // 查询终端属性
	MsgPositionInfoQuery        uint16 = 0x8201 // 位置信息查询
	MsgTextMessage              uint16 = 0x8300 // 文本信息下发
	MsgPhoneCallback            uint16 = 0x8400 // 电话回拨
	MsgVehicleControl           uint16 = 0x8500 // 车辆控制
	MsgDriverIdentityRequest    uint16 = 0x8702 // 上报驾驶员身份信息请求
	MsgSingleMultimediaUpload   uint16 = 0x8805 // 单条存储多媒体数据检索上传
)

// Message 消息体（封闭集合，仅本包内的类型可实现）
type Message interface {
	MessageID() uint16
	isMessage()
}

// IsUplink 终端 -> 平台 方向（消息ID最高位为0）
func IsUplink(id uint16) bool { return id&0x8000 == 0 }

// TerminalResult 终端通用应答结果
type TerminalResult uint8

const (
	TerminalResultSuccess     TerminalResult = 0
	TerminalResultFailure     TerminalResult = 1
	TerminalResultBadMessage  TerminalResult = 2
	TerminalResultUnsupported TerminalResult = 3
)

var terminalResultText = map[TerminalResult]string{
	TerminalResultSuccess:     "success",
	TerminalResultFailure:     "failure",
	TerminalResultBadMessage:  "message error",
	TerminalResultUnsupported: "unsupported",
}

func (r TerminalResult) String() string { return describe(terminalResultText, r) }

// PlatformResult 平台通用应答结果
type PlatformResult uint8

const (
	PlatformResultSuccess      PlatformResult = 0
	PlatformResultFailure      PlatformResult = 1
	PlatformResultBadMessage   PlatformResult = 2
	PlatformResultUnsupported  PlatformResult = 3
	PlatformResultAlarmConfirm PlatformResult = 4
)

var platformResultText = map[PlatformResult]string{
	PlatformResultSuccess:      "success",
	PlatformResultFailure:      "failure",
	PlatformResultBadMessage:   "message error",
	PlatformResultUnsupported:  "unsupported",
	PlatformResultAlarmConfirm: "alarm confirmed",
}

func (r PlatformResult) String() string { return describe(platformResultText, r) }

// RegisterResult 终端注册应答结果
type RegisterResult uint8

const (
	RegisterSuccess           RegisterResult = 0
	RegisterVehicleRegistered RegisterResult = 1
	RegisterNoSuchVehicle     RegisterResult = 2
	RegisterTerminalExists    RegisterResult = 3
	RegisterNoSuchTerminal    RegisterResult = 4
)

var registerResultText = map[RegisterResult]string{
	RegisterSuccess:           "success",
	RegisterVehicleRegistered: "vehicle already registered",
	RegisterNoSuchVehicle:     "vehicle not found",
	RegisterTerminalExists:    "terminal already registered",
	RegisterNoSuchTerminal:    "terminal not found",
}

func (r RegisterResult) String() string { return describe(registerResultText, r) }

func describe[K ~uint8](table map[K]string, k K) string {
	if s, ok := table[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown(0x%02X)", uint8(k))
}
