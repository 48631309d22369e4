package gateway

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/taoyao-code/jt808-gateway/internal/protocol/jt808"
)

// ErrTerminalOffline 终端不在本实例在线
var ErrTerminalOffline = errors.New("gateway: terminal offline")

// Conn 终端连接的最小写接口，由 tcpserver.ConnContext 实现
type Conn interface {
	Write(b []byte) error
	Close() error
	RemoteAddr() net.Addr
}

type pendingRequest struct {
	requestID uint16
	ch        chan jt808.Message
}

// Terminal 单个终端连接的下行上下文：
// 记住终端使用的协议版本与手机号，分配平台流水号，并按应答流水号匹配同步请求
type Terminal struct {
	conn  Conn
	codec *jt808.Codec
	chunk int

	mu       sync.Mutex
	phone    string
	is2019   bool
	protoVer uint8
	serial   uint16
	authed   bool
	pending  map[uint16]*pendingRequest // 下行流水号 -> 等待中的请求
	detached bool
}

func newTerminal(conn Conn, codec *jt808.Codec, chunk int) *Terminal {
	if chunk <= 0 || chunk > jt808.MaxBodyLength {
		chunk = jt808.MaxBodyLength
	}
	return &Terminal{conn: conn, codec: codec, chunk: chunk, pending: make(map[uint16]*pendingRequest)}
}

// observe 记录上行消息头中的终端标识与版本
func (t *Terminal) observe(h jt808.Header) {
	t.mu.Lock()
	t.phone = h.PhoneNumber
	t.is2019 = h.Property.VersionFlag()
	t.protoVer = h.ProtocolVersion
	t.mu.Unlock()
}

// Phone 终端手机号，收到首条上行消息前为空
func (t *Terminal) Phone() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phone
}

func (t *Terminal) setAuthed() (first bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	first = !t.authed
	t.authed = true
	return first
}

func (t *Terminal) clearAuthed() {
	t.mu.Lock()
	t.authed = false
	t.mu.Unlock()
}

// Authenticated 是否已鉴权
func (t *Terminal) Authenticated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.authed
}

// Send 下发消息，返回首包流水号。消息体超过分包大小时自动分包
func (t *Terminal) Send(m jt808.Message) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(m)
}

func (t *Terminal) sendLocked(m jt808.Message) (uint16, error) {
	if t.detached {
		return 0, ErrTerminalOffline
	}
	h := jt808.Header{
		PhoneNumber:     t.phone,
		SerialNumber:    t.serial,
		ProtocolVersion: t.protoVer,
		Property:        jt808.Property(0).WithVersionFlag(t.is2019),
	}

	var packets [][]byte
	body, err := t.codec.Registry().EncodeBody(m)
	switch {
	case err == nil && len(body) <= t.chunk:
		b, err := t.codec.Encode(h, m)
		if err != nil {
			return 0, err
		}
		packets = [][]byte{b}
	case err == nil || errors.Is(err, jt808.ErrBodyTooLong):
		packets, err = t.codec.EncodeFragments(h, m, t.chunk)
		if err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	first := t.serial
	for _, p := range packets {
		if err := t.conn.Write(jt808.Pack(p)); err != nil {
			return first, err
		}
	}
	t.serial += uint16(len(packets))
	return first, nil
}

// Request 下发消息并等待终端应答
func (t *Terminal) Request(ctx context.Context, m jt808.Message) (jt808.Message, error) {
	ch := make(chan jt808.Message, 1)

	t.mu.Lock()
	serial, err := t.sendLocked(m)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.pending[serial] = &pendingRequest{requestID: m.MessageID(), ch: ch}
	t.mu.Unlock()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrTerminalOffline
		}
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, serial)
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}

// resolve 按应答流水号唤醒等待中的请求
func (t *Terminal) resolve(serial uint16, resp jt808.Message) bool {
	t.mu.Lock()
	p, ok := t.pending[serial]
	if ok {
		delete(t.pending, serial)
	}
	t.mu.Unlock()
	if ok {
		p.ch <- resp
	}
	return ok
}

// resolveByRequest 应答不带流水号时（如查询终端属性），唤醒最早的同类请求
func (t *Terminal) resolveByRequest(requestID uint16, resp jt808.Message) bool {
	t.mu.Lock()
	var (
		found  bool
		oldest uint16
	)
	for serial, p := range t.pending {
		if p.requestID != requestID {
			continue
		}
		// 流水号回绕前按数值取最小
		if !found || serial < oldest {
			oldest, found = serial, true
		}
	}
	var p *pendingRequest
	if found {
		p = t.pending[oldest]
		delete(t.pending, oldest)
	}
	t.mu.Unlock()
	if found {
		p.ch <- resp
	}
	return found
}

// detach 连接结束：拒绝后续发送并唤醒全部等待中的请求。返回是否首次调用
func (t *Terminal) detach() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return false
	}
	t.detached = true
	for serial, p := range t.pending {
		close(p.ch)
		delete(t.pending, serial)
	}
	return true
}
