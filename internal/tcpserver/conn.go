package tcpserver

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("tcp: connection closed")
	// ErrWriteQueueFull 写队列在超时内未腾出空间
	ErrWriteQueueFull = errors.New("tcp: write queue timeout")
)

// ConnContext 为每个 TCP 连接提供读/写循环与回调能力
type ConnContext struct {
	s      *Server
	c      net.Conn
	id     uint64
	writeC chan []byte
	onRead func([]byte)
	doneC  chan struct{}
	once   sync.Once
	proto  atomic.Value // string: 协议标记，如 "jt808"
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	q := s.cfg.WriteQueue
	if q <= 0 {
		q = 128
	}
	cc := &ConnContext{
		s:      s,
		c:      c,
		id:     atomic.AddUint64(&s.nextConnID, 1),
		writeC: make(chan []byte, q),
		doneC:  make(chan struct{}),
	}
	cc.proto.Store("")
	return cc
}

// ID 返回连接ID（单进程唯一递增）
func (cc *ConnContext) ID() uint64 { return cc.id }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() net.Addr { return cc.c.RemoteAddr() }

// Server 返回所属服务
func (cc *ConnContext) Server() *Server { return cc.s }

// SetOnRead 安装读取回调（收到上行原始字节时触发），回调内不得持有 p
func (cc *ConnContext) SetOnRead(h func(p []byte)) { cc.onRead = h }

// SetProtocol 设置连接所使用的协议标记（在 Mux 决策后调用）
func (cc *ConnContext) SetProtocol(p string) { cc.proto.Store(p) }

// Protocol 返回连接的协议标记
func (cc *ConnContext) Protocol() string {
	s, _ := cc.proto.Load().(string)
	return s
}

// Write 异步写入，受写队列与写超时影响
func (cc *ConnContext) Write(b []byte) error {
	select {
	case <-cc.doneC:
		return ErrConnClosed
	default:
	}
	// 复制一份，避免调用方复用底层切片
	dup := make([]byte, len(b))
	copy(dup, b)

	to := cc.s.cfg.WriteTimeout
	if to <= 0 {
		to = 5 * time.Second
	}
	timer := time.NewTimer(to)
	defer timer.Stop()
	select {
	case cc.writeC <- dup:
		return nil
	case <-cc.doneC:
		return ErrConnClosed
	case <-timer.C:
		return ErrWriteQueueFull
	}
}

// Close 关闭连接，可重复调用
func (cc *ConnContext) Close() error {
	var err error
	cc.once.Do(func() {
		close(cc.doneC)
		err = cc.c.Close()
	})
	return err
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }

// run 启动读/写循环，阻塞直至连接结束
func (cc *ConnContext) run() {
	defer cc.Close()

	doneW := make(chan struct{})
	go func() {
		defer close(doneW)
		cc.writeLoop()
	}()

	buf := make([]byte, 4096)
	for {
		// 读超时即视为终端失联
		if cc.s.cfg.ReadTimeout > 0 {
			_ = cc.c.SetReadDeadline(time.Now().Add(cc.s.cfg.ReadTimeout))
		}
		n, err := cc.c.Read(buf)
		if n > 0 {
			if cc.s.onRecvBytes != nil {
				cc.s.onRecvBytes(n)
			}
			if cc.onRead != nil {
				cc.onRead(buf[:n])
			}
		}
		if err != nil {
			break
		}
	}
	_ = cc.Close()
	<-doneW
}

func (cc *ConnContext) writeLoop() {
	for {
		select {
		case msg := <-cc.writeC:
			if cc.s.cfg.WriteTimeout > 0 {
				_ = cc.c.SetWriteDeadline(time.Now().Add(cc.s.cfg.WriteTimeout))
			}
			if _, err := cc.c.Write(msg); err != nil {
				_ = cc.Close()
				return
			}
		case <-cc.doneC:
			return
		}
	}
}
