package jt808

import (
	"encoding/binary"
	"time"
)

// 位置基本信息固定长度
const locationBaseLength = 4 + 4 + 4 + 4 + 2 + 2 + 2 + 6

// 位置附加信息ID
const (
	ExtraMileage        uint8 = 0x01 // 里程 DWORD 1/10km
	ExtraFuel           uint8 = 0x02 // 油量 WORD 1/10L
	ExtraRecorderSpeed  uint8 = 0x03 // 行驶记录功能获取的速度 WORD 1/10km/h
	ExtraAlarmEventID   uint8 = 0x04 // 需要人工确认报警事件的ID WORD
	ExtraSignalStrength uint8 = 0x30 // 无线通信网络信号强度 BYTE
	ExtraSatellites     uint8 = 0x31 // GNSS 定位卫星数 BYTE
)

// 时间字段 BCD[6] 为 GMT+8
var beijing = time.FixedZone("GMT+8", 8*3600)

// LocationExtra 位置附加信息项
type LocationExtra struct {
	ID    uint8
	Value []byte
}

// LocationReport 位置信息汇报 0x0200
type LocationReport struct {
	Alarm     uint32
	Status    uint32
	Latitude  uint32 // 度 * 10^6
	Longitude uint32 // 度 * 10^6
	Altitude  uint16 // 米
	Speed     uint16 // 1/10 km/h
	Direction uint16 // 0-359，正北为0，顺时针
	Time      string // YYMMDDhhmmss
	Extras    []LocationExtra
}

func (LocationReport) MessageID() uint16 { return MsgLocationReport }
func (LocationReport) isMessage()        {}

// Timestamp 解析 BCD 时间（GMT+8）
func (m LocationReport) Timestamp() (time.Time, error) {
	t, err := time.ParseInLocation("060102150405", m.Time, beijing)
	if err != nil {
		return time.Time{}, invalidField("time", m.Time)
	}
	return t, nil
}

// FormatTime 将时间格式化为 BCD 时间字段所需的数字串
func FormatTime(t time.Time) string {
	return t.In(beijing).Format("060102150405")
}

// Extra 查找附加信息
func (m LocationReport) Extra(id uint8) ([]byte, bool) {
	for _, e := range m.Extras {
		if e.ID == id {
			return e.Value, true
		}
	}
	return nil, false
}

// Mileage 里程（1/10 km）
func (m LocationReport) Mileage() (uint32, bool) {
	v, ok := m.Extra(ExtraMileage)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// Satellites 定位卫星数
func (m LocationReport) Satellites() (uint8, bool) {
	v, ok := m.Extra(ExtraSatellites)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

// decodeLocation 读取位置基本信息与附加信息，消耗剩余全部字节
func decodeLocation(r *Reader) (LocationReport, error) {
	var m LocationReport
	var err error
	if r.Len() < locationBaseLength {
		_, err = r.Bytes(locationBaseLength)
		return m, err
	}
	m.Alarm, _ = r.Uint32()
	m.Status, _ = r.Uint32()
	m.Latitude, _ = r.Uint32()
	m.Longitude, _ = r.Uint32()
	m.Altitude, _ = r.Uint16()
	m.Speed, _ = r.Uint16()
	m.Direction, _ = r.Uint16()
	if m.Time, err = r.BCD(6); err != nil {
		return m, err
	}
	for r.Len() > 0 {
		id, err := r.Uint8()
		if err != nil {
			return m, err
		}
		n, err := r.Uint8()
		if err != nil {
			return m, err
		}
		v, err := r.Bytes(int(n))
		if err != nil {
			return m, err
		}
		m.Extras = append(m.Extras, LocationExtra{ID: id, Value: v})
	}
	return m, nil
}

func encodeLocation(w *Writer, m LocationReport) error {
	w.Uint32(m.Alarm)
	w.Uint32(m.Status)
	w.Uint32(m.Latitude)
	w.Uint32(m.Longitude)
	w.Uint16(m.Altitude)
	w.Uint16(m.Speed)
	w.Uint16(m.Direction)
	if err := w.BCD(m.Time, 6); err != nil {
		return err
	}
	for _, e := range m.Extras {
		if len(e.Value) > 0xFF {
			return invalidField("extra.length", len(e.Value))
		}
		w.Uint8(e.ID)
		w.Uint8(uint8(len(e.Value)))
		w.Write(e.Value)
	}
	return nil
}

// PositionQueryResponse 位置信息查询应答 0x0201
type PositionQueryResponse struct {
	ResponseSerialNumber uint16
	Location             LocationReport
}

func (PositionQueryResponse) MessageID() uint16 { return MsgPositionQueryResponse }
func (PositionQueryResponse) isMessage()        {}

func decodePositionQueryResponse(r *Reader) (PositionQueryResponse, error) {
	var m PositionQueryResponse
	var err error
	if m.ResponseSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	m.Location, err = decodeLocation(r)
	return m, err
}

func encodePositionQueryResponse(w *Writer, m PositionQueryResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	return encodeLocation(w, m.Location)
}

// VehicleControlResponse 车辆控制应答 0x0500
// 消息体长于应答流水号时，其后为完整的位置信息汇报消息体
type VehicleControlResponse struct {
	ResponseSerialNumber uint16
	Location             *LocationReport
}

func (VehicleControlResponse) MessageID() uint16 { return MsgVehicleControlResponse }
func (VehicleControlResponse) isMessage()        {}

func decodeVehicleControlResponse(r *Reader) (VehicleControlResponse, error) {
	var m VehicleControlResponse
	var err error
	if m.ResponseSerialNumber, err = r.Uint16(); err != nil {
		return m, err
	}
	if r.Len() == 0 {
		return m, nil
	}
	loc, err := decodeLocation(r)
	if err != nil {
		return m, err
	}
	m.Location = &loc
	return m, nil
}

func encodeVehicleControlResponse(w *Writer, m VehicleControlResponse) error {
	w.Uint16(m.ResponseSerialNumber)
	if m.Location == nil {
		return nil
	}
	return encodeLocation(w, *m.Location)
}
