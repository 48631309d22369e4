package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/jt808-gateway/internal/gateway"
	"github.com/taoyao-code/jt808-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/jt808-gateway/internal/session"
)

// Downlinker 平台下行能力，由 gateway.Gateway 实现
type Downlinker interface {
	Send(ctx context.Context, phone string, m jt808.Message) (gateway.Delivery, error)
	Request(ctx context.Context, phone string, m jt808.Message) (jt808.Message, error)
}

// TerminalHandler 终端查询与下行指令API
type TerminalHandler struct {
	gw      Downlinker
	sess    session.SessionManager
	timeout time.Duration
	logger  *zap.Logger
}

// NewTerminalHandler 创建终端API处理器，timeout 为同步请求等待终端应答的时间
func NewTerminalHandler(gw Downlinker, sess session.SessionManager, timeout time.Duration, logger *zap.Logger) *TerminalHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalHandler{gw: gw, sess: sess, timeout: timeout, logger: logger}
}

func (h *TerminalHandler) phone(c *gin.Context) (string, bool) {
	p := c.Param("phone")
	if p == "" || len(p) > 2*jt808.PhoneBytes2019 || strings.Trim(p, "0123456789") != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone"})
		return "", false
	}
	return p, true
}

// fail 将下行错误映射为HTTP状态码
func (h *TerminalHandler) fail(c *gin.Context, phone string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gateway.ErrTerminalOffline):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrBreakerOpen):
		status = http.StatusServiceUnavailable
	case errors.Is(err, jt808.ErrInvalidFieldValue),
		errors.Is(err, jt808.ErrInvalidEnumValue),
		errors.Is(err, jt808.ErrStringTooLong),
		errors.Is(err, jt808.ErrBodyTooLong):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("downlink failed", zap.String("phone", phone), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// OnlineCount 在线终端数
func (h *TerminalHandler) OnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.sess.OnlineCount(time.Now())})
}

// GetTerminal 查询终端会话
func (h *TerminalHandler) GetTerminal(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	info, ok := h.sess.Get(phone)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"terminal": info,
		"online":   h.sess.IsOnline(phone, time.Now()),
	})
}

type textRequest struct {
	Flag uint8  `json:"flag"`
	Text string `json:"text" binding:"required"`
}

// SendText 文本信息下发 0x8300
func (h *TerminalHandler) SendText(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.send(c, phone, jt808.TextMessage{Flag: req.Flag, Text: req.Text})
}

type controlRequest struct {
	Lock bool `json:"lock"`
}

// VehicleControl 车门加锁/解锁 0x8500
func (h *TerminalHandler) VehicleControl(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.send(c, phone, jt808.NewDoorControl(req.Lock))
}

func (h *TerminalHandler) send(c *gin.Context, phone string, m jt808.Message) {
	delivery, err := h.gw.Send(c.Request.Context(), phone, m)
	if err != nil {
		h.fail(c, phone, err)
		return
	}
	status := http.StatusOK
	if delivery == gateway.DeliveryQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"delivery": delivery, "msg_id": fmt.Sprintf("0x%04X", m.MessageID())})
}

func (h *TerminalHandler) request(c *gin.Context, phone string, m jt808.Message) (jt808.Message, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	resp, err := h.gw.Request(ctx, phone, m)
	if err != nil {
		h.fail(c, phone, err)
		return nil, false
	}
	return resp, true
}

type paramJSON struct {
	ID  string `json:"id"`
	Hex string `json:"hex"`
}

func paramsJSON(items []jt808.ParameterItem) []paramJSON {
	out := make([]paramJSON, 0, len(items))
	for _, p := range items {
		out = append(out, paramJSON{ID: fmt.Sprintf("0x%04X", p.ID), Hex: strings.ToUpper(hex.EncodeToString(p.Value))})
	}
	return out
}

// parseIDs 解析 ids=0x0001,19 形式的参数ID列表
func parseIDs(s string) ([]uint32, error) {
	var ids []uint32
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid param id %q", f)
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}

// QueryParams 查询终端参数：无 ids 时查询全部 0x8104，否则查询指定 0x8106
func (h *TerminalHandler) QueryParams(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var m jt808.Message = jt808.QueryTerminalParameters{}
	if len(ids) > 0 {
		m = jt808.QuerySpecifiedParameters{IDs: ids}
	}
	resp, ok := h.request(c, phone, m)
	if !ok {
		return
	}
	qr, ok := resp.(jt808.QueryParametersResponse)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("unexpected response 0x%04X", resp.MessageID())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"params": paramsJSON(qr.Items)})
}

type setParamItem struct {
	ID     uint32  `json:"id"`
	Dword  *uint32 `json:"dword,omitempty"`
	Word   *uint16 `json:"word,omitempty"`
	Byte   *uint8  `json:"byte,omitempty"`
	String *string `json:"string,omitempty"`
}

func (p setParamItem) item() (jt808.ParameterItem, error) {
	switch {
	case p.Dword != nil:
		return jt808.Uint32Param(p.ID, *p.Dword), nil
	case p.Word != nil:
		return jt808.Uint16Param(p.ID, *p.Word), nil
	case p.Byte != nil:
		return jt808.Uint8Param(p.ID, *p.Byte), nil
	case p.String != nil:
		return jt808.TextParam(p.ID, *p.String)
	}
	return jt808.ParameterItem{}, fmt.Errorf("param 0x%04X: no value", p.ID)
}

type setParamsRequest struct {
	Items []setParamItem `json:"items" binding:"required,min=1"`
}

// SetParams 设置终端参数 0x8103，等待终端通用应答
func (h *TerminalHandler) SetParams(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	var req setParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg := jt808.SetTerminalParameters{}
	for _, p := range req.Items {
		item, err := p.item()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg.Items = append(msg.Items, item)
	}

	resp, ok := h.request(c, phone, msg)
	if !ok {
		return
	}
	h.commonResult(c, resp)
}

func (h *TerminalHandler) commonResult(c *gin.Context, resp jt808.Message) {
	cr, ok := resp.(jt808.TerminalCommonResponse)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("unexpected response 0x%04X", resp.MessageID())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": cr.IsSuccess(), "result": cr.Result.String()})
}

func locationJSON(loc jt808.LocationReport) gin.H {
	out := gin.H{
		"alarm":     loc.Alarm,
		"status":    loc.Status,
		"lat":       float64(loc.Latitude) / 1e6,
		"lng":       float64(loc.Longitude) / 1e6,
		"altitude":  loc.Altitude,
		"speed":     float64(loc.Speed) / 10,
		"direction": loc.Direction,
		"time":      loc.Time,
	}
	if ts, err := loc.Timestamp(); err == nil {
		out["timestamp"] = ts.Unix()
	}
	return out
}

// QueryLocation 位置信息查询 0x8201
func (h *TerminalHandler) QueryLocation(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	resp, ok := h.request(c, phone, jt808.PositionInfoQuery{})
	if !ok {
		return
	}
	pr, ok := resp.(jt808.PositionQueryResponse)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("unexpected response 0x%04X", resp.MessageID())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": locationJSON(pr.Location)})
}

// QueryProperties 查询终端属性 0x8107
func (h *TerminalHandler) QueryProperties(c *gin.Context) {
	phone, ok := h.phone(c)
	if !ok {
		return
	}
	resp, ok := h.request(c, phone, jt808.QueryTerminalProperty{})
	if !ok {
		return
	}
	pr, ok := resp.(jt808.QueryPropertyResponse)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("unexpected response 0x%04X", resp.MessageID())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": gin.H{
		"terminal_type":    pr.TerminalType,
		"manufacturer_id":  pr.ManufacturerID,
		"model":            pr.Model,
		"terminal_id":      pr.TerminalID,
		"iccid":            pr.ICCID,
		"hardware_version": pr.HardwareVersion,
		"firmware_version": pr.FirmwareVersion,
	}})
}
