package jt808

// SetTerminalParameters 设置终端参数 0x8103
type SetTerminalParameters struct {
	Items []ParameterItem
}

func (SetTerminalParameters) MessageID() uint16 { return MsgSetTerminalParameters }
func (SetTerminalParameters) isMessage()        {}

func decodeSetTerminalParameters(r *Reader) (SetTerminalParameters, error) {
	n, err := r.Uint8()
	if err != nil {
		return SetTerminalParameters{}, err
	}
	items, err := readParameterItems(r, int(n))
	if err != nil {
		return SetTerminalParameters{}, err
	}
	return SetTerminalParameters{Items: items}, r.Done()
}

func encodeSetTerminalParameters(w *Writer, m SetTerminalParameters) error {
	return writeParameterItems(w, m.Items)
}

// QueryTerminalParameters 查询终端参数 0x8104，消息体为空
type QueryTerminalParameters struct{}

func (QueryTerminalParameters) MessageID() uint16 { return MsgQueryTerminalParameters }
func (QueryTerminalParameters) isMessage()        {}

// QuerySpecifiedParameters 查询指定终端参数 0x8106
type QuerySpecifiedParameters struct {
	IDs []uint32
}

func (QuerySpecifiedParameters) MessageID() uint16 { return MsgQuerySpecifiedParameters }
func (QuerySpecifiedParameters) isMessage()        {}

func decodeQuerySpecifiedParameters(r *Reader) (QuerySpecifiedParameters, error) {
	n, err := r.Uint8()
	if err != nil {
		return QuerySpecifiedParameters{}, err
	}
	ids := make([]uint32, 0, n)
	for i := 0; i < int(n); i++ {
		id, err := r.Uint32()
		if err != nil {
			return QuerySpecifiedParameters{}, err
		}
		ids = append(ids, id)
	}
	return QuerySpecifiedParameters{IDs: ids}, r.Done()
}

func encodeQuerySpecifiedParameters(w *Writer, m QuerySpecifiedParameters) error {
	if len(m.IDs) == 0 || len(m.IDs) > 0xFF {
		return invalidField("param_count", len(m.IDs))
	}
	w.Uint8(uint8(len(m.IDs)))
	for _, id := range m.IDs {
		w.Uint32(id)
	}
	return nil
}

// QueryParametersResponse 查询终端参数应答 0x0104
type QueryParametersResponse struct {
	ResponseSerialNumber uint16
	Items                []ParameterItem
}

func (QueryParametersResponse) MessageID() uint16 { return MsgQueryParametersResponse }
func (QueryParametersResponse) isMessage()        {}

// Find 按参数ID查找
func (m QueryParametersResponse) Find(id uint32) (ParameterItem, bool) {
	for _, p := range m.Items {
		if p.ID == id {
			return p, true
		}
	}
	return ParameterItem{}, false
}

func decodeQueryParametersResponse(r *Reader) (QueryParametersResponse, error) {
	var m QueryParametersResponse
	var err error
	if m.ResponseSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	n, err := r.Uint8()
	if err != nil {
		return m, err
	}
	if m.Items, err = readParameterItems(r, int(n)); err != nil {
		return m, err
	}
	return m, r.Done()
}

func encodeQueryParametersResponse(w *Writer, m QueryParametersResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	return writeParameterItems(w, m.Items)
}

// QueryTerminalProperty 查询终端属性 0x8107，消息体为空
type QueryTerminalProperty struct{}

func (QueryTerminalProperty) MessageID() uint16 { return MsgQueryTerminalProperty }
func (QueryTerminalProperty) isMessage()        {}

// QueryPropertyResponse 查询终端属性应答 0x0107
type QueryPropertyResponse struct {
	TerminalType    uint16
	ManufacturerID  string // 5 字节
	Model           string // 20 字节，不足补 0x00
	TerminalID      string // 7 字节，不足补 0x00
	ICCID           string // BCD[10]
	HardwareVersion string
	FirmwareVersion string
	GNSSProperty    uint8
	CommProperty    uint8
}

func (QueryPropertyResponse) MessageID() uint16 { return MsgQueryPropertyResponse }
func (QueryPropertyResponse) isMessage()        {}

const (
	manufacturerIDLength = 5
	modelLength          = 20
	terminalIDLength     = 7
	iccidLength          = 10
)

func decodeQueryPropertyResponse(r *Reader) (QueryPropertyResponse, error) {
	var m QueryPropertyResponse
	var err error
	if m.TerminalType, err = r.Uint16(); err != nil {
		return m, err
	}
	if m.ManufacturerID, err = r.GBK(manufacturerIDLength); err != nil {
		return m, err
	}
	if m.Model, err = r.GBK(modelLength); err != nil {
		return m, err
	}
	if m.TerminalID, err = r.GBK(terminalIDLength); err != nil {
		return m, err
	}
	if m.ICCID, err = r.BCD(iccidLength); err != nil {
		return m, err
	}
	if m.HardwareVersion, err = r.LenPrefixedGBK(); err != nil {
		return m, err
	}
	if m.FirmwareVersion, err = r.LenPrefixedGBK(); err != nil {
		return m, err
	}
	if m.GNSSProperty, err = r.Uint8(); err != nil {
		return m, err
	}
	if m.CommProperty, err = r.Uint8(); err != nil {
		return m, err
	}
	return m, r.Done()
}

func encodeQueryPropertyResponse(w *Writer, m QueryPropertyResponse) error {
	w.Uint16(m.TerminalType)
	if err := w.FixedGBK("manufacturer_id", m.ManufacturerID, manufacturerIDLength); err != nil {
		return err
	}
	if err := w.FixedGBK("model", m.Model, modelLength); err != nil {
		return err
	}
	if err := w.FixedGBK("terminal_id", m.TerminalID, terminalIDLength); err != nil {
		return err
	}
	if err := w.BCD(m.ICCID, iccidLength); err != nil {
		return err
	}
	if err := w.LenPrefixedGBK("hardware_version", m.HardwareVersion); err != nil {
		return err
	}
	if err := w.LenPrefixedGBK("firmware_version", m.FirmwareVersion); err != nil {
		return err
	}
	w.Uint8(m.GNSSProperty)
	w.Uint8(m.CommProperty)
	return nil
}
