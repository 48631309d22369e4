package jt808

// TerminalCommonResponse 终端通用应答 0x0001
type TerminalCommonResponse struct {
	ResponseSerialNumber uint16 // 对应平台消息流水号
	ResponseMessageID    uint16 // 对应平台消息ID
	Result               TerminalResult
}

func (TerminalCommonResponse) MessageID() uint16 { return MsgTerminalCommonResponse }
func (TerminalCommonResponse) isMessage()        {}

// IsSuccess 结果为成功/确认
func (m TerminalCommonResponse) IsSuccess() bool { return m.Result == TerminalResultSuccess }

func decodeTerminalCommonResponse(r *Reader) (TerminalCommonResponse, error) {
	var m TerminalCommonResponse
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
	m.Result = TerminalResult(res)
	return m, r.Done()
}

func encodeTerminalCommonResponse(w *Writer, m TerminalCommonResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	w.Uint16(m.ResponseMessageID)
	w.Uint8(uint8(m.Result))
	return nil
}

// TerminalHeartbeat 终端心跳 0x0002，消息体为空
type TerminalHeartbeat struct{}

func (TerminalHeartbeat) MessageID() uint16 { return MsgTerminalHeartbeat }
func (TerminalHeartbeat) isMessage()        {}

// TerminalLogout 终端注销 0x0003，消息体为空
type TerminalLogout struct{}

func (TerminalLogout) MessageID() uint16 { return MsgTerminalLogout }
func (TerminalLogout) isMessage()        {}

// TerminalAuthentication 终端鉴权 0x0102
type TerminalAuthentication struct {
	AuthCode string
}

func (TerminalAuthentication) MessageID() uint16 { return MsgTerminalAuthentication }
func (TerminalAuthentication) isMessage()        {}

func decodeTerminalAuthentication(r *Reader) (TerminalAuthentication, error) {
	code, err := DecodeGBK(r.Rest())
	return TerminalAuthentication{AuthCode: code}, err
}

func encodeTerminalAuthentication(w *Writer, m TerminalAuthentication) error {
	if m.AuthCode == "" {
		return invalidField("auth_code", m.AuthCode)
	}
	return w.GBK(m.AuthCode)
}

// EventReport 事件报告 0x0301
type EventReport struct {
	EventID uint8
}

func (EventReport) MessageID() uint16 { return MsgEventReport }
func (EventReport) isMessage()        {}

func decodeEventReport(r *Reader) (EventReport, error) {
	id, err := r.Uint8()
	if err != nil {
		return EventReport{}, err
	}
	return EventReport{EventID: id}, r.Done()
}

func encodeEventReport(w *Writer, m EventReport) error {
	w.Uint8(m.EventID)
	return nil
}

// InfoDemandFlag 点播/取消标志
type InfoDemandFlag uint8

const (
	InfoCancel InfoDemandFlag = 0
	InfoDemand InfoDemandFlag = 1
)

func (f InfoDemandFlag) valid() bool { return f == InfoCancel || f == InfoDemand }

// InfoDemandCancel 信息点播/取消 0x0303
type InfoDemandCancel struct {
	InfoType uint8
	Flag     InfoDemandFlag
}

func (InfoDemandCancel) MessageID() uint16 { return MsgInfoDemandCancel }
func (InfoDemandCancel) isMessage()        {}

// IsDemand 点播
func (m InfoDemandCancel) IsDemand() bool { return m.Flag == InfoDemand }

func decodeInfoDemandCancel(r *Reader) (InfoDemandCancel, error) {
	var m InfoDemandCancel
	var err error
	if m.InfoType, err = r.Uint8(); err != nil {
		return m, err
	}
	flag, err := r.Uint8()
	if err != nil {
		return m, err
	}
	m.Flag = InfoDemandFlag(flag)
	if !m.Flag.valid() {
		return m, invalidEnum("info_demand_flag", flag)
	}
	return m, r.Done()
}

func encodeInfoDemandCancel(w *Writer, m InfoDemandCancel) error {
	if !m.Flag.valid() {
		return invalidEnum("info_demand_flag", uint8(m.Flag))
	}
	w.Uint8(m.InfoType)
	w.Uint8(uint8(m.Flag))
	return nil
}
