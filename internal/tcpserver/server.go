package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
)

// Server TCP 网关：接受连接、准入控制，并为每个连接启动读写循环
type Server struct {
	cfg       cfgpkg.TCPConfig
	logger    *zap.Logger
	admission *Admission

	ln      net.Listener
	wg      sync.WaitGroup
	stopC   chan struct{}
	stopped atomic.Bool

	nextConnID uint64
	connsMu    sync.Mutex
	conns      map[uint64]*ConnContext

	handler func(*ConnContext)

	// 可选指标回调
	onAccept    func()
	onReject    func(reason string)
	onRecvBytes func(n int)
}

// New 创建 TCP 网关
func New(cfg cfgpkg.TCPConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		admission: NewAdmission(cfg.MaxConnections, cfg.AcquireTimeout, cfg.AcceptRate, cfg.AcceptBurst),
		stopC:     make(chan struct{}),
		conns:     make(map[uint64]*ConnContext),
	}
}

// SetConnHandler 设置连接处理回调，在连接读循环启动前调用
func (s *Server) SetConnHandler(h func(*ConnContext)) { s.handler = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onReject func(string), onRecvBytes func(int)) {
	s.onAccept, s.onReject, s.onRecvBytes = onAccept, onReject, onRecvBytes
}

// GetLogger 返回服务日志器
func (s *Server) GetLogger() *zap.Logger { return s.logger }

// Admission 返回准入控制器
func (s *Server) Admission() *Admission { return s.admission }

// Addr 返回实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}

		release, err := s.admission.Admit(context.Background())
		if err != nil {
			reason := "limit"
			if errors.Is(err, ErrRateLimited) {
				reason = "rate"
			}
			if s.onReject != nil {
				s.onReject(reason)
			}
			s.logger.Warn("connection rejected",
				zap.String("remote_addr", conn.RemoteAddr().String()),
				zap.String("reason", reason),
			)
			_ = conn.Close()
			continue
		}
		if s.onAccept != nil {
			s.onAccept()
		}

		cc := newConnContext(s, conn)
		s.track(cc)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer release()
			defer s.untrack(cc)
			if s.handler != nil {
				s.handler(cc)
			}
			cc.run()
		}()
	}
}

func (s *Server) track(cc *ConnContext) {
	s.connsMu.Lock()
	s.conns[cc.id] = cc
	s.connsMu.Unlock()
}

func (s *Server) untrack(cc *ConnContext) {
	s.connsMu.Lock()
	delete(s.conns, cc.id)
	s.connsMu.Unlock()
}

// ConnCount 当前连接数
func (s *Server) ConnCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

// Shutdown 停止监听、关闭全部连接并等待读写循环退出
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}

	s.connsMu.Lock()
	for _, cc := range s.conns {
		_ = cc.Close()
	}
	s.connsMu.Unlock()

	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
