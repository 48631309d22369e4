package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/jt808-gateway/internal/metrics"
	"github.com/taoyao-code/jt808-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/jt808-gateway/internal/session"
	redisstore "github.com/taoyao-code/jt808-gateway/internal/storage/redis"
	"github.com/taoyao-code/jt808-gateway/internal/tcpserver"
)

// DownlinkStore 离线下行指令存储，由 Redis 下行队列实现
type DownlinkStore interface {
	Push(ctx context.Context, msg *redisstore.DownlinkMessage) error
	Drain(ctx context.Context, phone string, max int64) ([]*redisstore.DownlinkMessage, error)
	MarkFailed(ctx context.Context, msg *redisstore.DownlinkMessage, cause error) error
}

// Delivery 下行结果
type Delivery string

const (
	DeliverySent   Delivery = "sent"
	DeliveryQueued Delivery = "queued"
)

// Options 网关依赖与参数
type Options struct {
	Codec    *jt808.Codec
	Sessions session.SessionManager
	Queue    DownlinkStore       // 可选：为空时离线终端下行直接失败
	Metrics  *metrics.AppMetrics // 可选
	Logger   *zap.Logger

	FragmentSize      int           // 下行单包消息体上限
	ReassemblyTimeout time.Duration // 上行分包组最长等待时间
	BreakerThreshold  int
	BreakerTimeout    time.Duration
	MaxRetry          int // 离线指令最大重试次数

	// Authenticate 校验鉴权码，为空时接受任意鉴权码
	Authenticate func(phone, code string) bool
}

// Gateway JT/T 808 终端接入：上行路由、平台应答、会话绑定与下行投递
type Gateway struct {
	codec   *jt808.Codec
	sess    session.SessionManager
	queue   DownlinkStore
	breaker *Breaker
	appm    *metrics.AppMetrics
	logger  *zap.Logger

	chunk             int
	reassemblyTimeout time.Duration
	maxRetry          int
	authenticate      func(phone, code string) bool
}

// New 创建网关
func New(opts Options) *Gateway {
	if opts.Codec == nil {
		opts.Codec = jt808.NewCodec()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReassemblyTimeout <= 0 {
		opts.ReassemblyTimeout = time.Minute
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 3
	}
	g := &Gateway{
		codec:             opts.Codec,
		sess:              opts.Sessions,
		queue:             opts.Queue,
		breaker:           NewBreaker(opts.BreakerThreshold, opts.BreakerTimeout),
		appm:              opts.Metrics,
		logger:            opts.Logger,
		chunk:             opts.FragmentSize,
		reassemblyTimeout: opts.ReassemblyTimeout,
		maxRetry:          opts.MaxRetry,
		authenticate:      opts.Authenticate,
	}
	g.breaker.OnStateChange(func(from, to BreakerState) {
		g.logger.Warn("downlink queue breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return g
}

// Codec 返回共享编解码器
func (g *Gateway) Codec() *jt808.Codec { return g.codec }

// Sessions 返回会话管理器
func (g *Gateway) Sessions() session.SessionManager { return g.sess }

// Breaker 返回离线队列熔断器
func (g *Gateway) Breaker() *Breaker { return g.breaker }

// ConnHandler 构建 TCP 连接处理器：每个连接独立的适配器与终端上下文，连接关闭时解绑会话
func (g *Gateway) ConnHandler() func(*tcpserver.ConnContext) {
	return func(cc *tcpserver.ConnContext) {
		term, a := g.attach(cc)
		tcpserver.NewMux(g.logger, a).BindToConn(cc)
		go func() {
			<-cc.Done()
			g.detach(term, "closed")
		}()
	}
}

// attach 为连接创建终端上下文与注册了上行路由的适配器
func (g *Gateway) attach(conn Conn) (*Terminal, *jt808.Adapter) {
	term := newTerminal(conn, g.codec, g.chunk)
	a := jt808.NewAdapter(g.codec)
	a.SetLogger(g.logger)
	if g.appm != nil {
		a.SetDecodeHook(func(result string) { g.appm.DecodeTotal.WithLabelValues(result).Inc() })
	}

	a.Register(jt808.MsgTerminalHeartbeat, g.route(term, g.handleHeartbeat))
	a.Register(jt808.MsgTerminalAuthentication, g.route(term, g.handleAuthentication))
	a.Register(jt808.MsgTerminalLogout, g.route(term, g.handleLogout))
	a.Register(jt808.MsgLocationReport, g.route(term, g.handleLocation))
	a.Register(jt808.MsgTerminalCommonResponse, g.route(term, g.handleCommonResponse))
	a.Register(jt808.MsgQueryParametersResponse, g.route(term, g.handleQueryResponse))
	a.Register(jt808.MsgPositionQueryResponse, g.route(term, g.handleQueryResponse))
	a.Register(jt808.MsgVehicleControlResponse, g.route(term, g.handleQueryResponse))
	a.Register(jt808.MsgQueryPropertyResponse, g.route(term, g.handleQueryResponse))
	a.SetFallback(g.route(term, g.handleGeneric))
	return term, a
}

type uplinkHandler func(term *Terminal, d *jt808.Decoded) error

// route 所有上行消息的公共处理：刷新会话活跃时间与路由指标
func (g *Gateway) route(term *Terminal, h uplinkHandler) jt808.Handler {
	return func(d *jt808.Decoded) error {
		term.observe(d.Header)
		g.sess.OnHeartbeat(d.Header.PhoneNumber, time.Now())
		if g.appm != nil {
			g.appm.RouteTotal.WithLabelValues(metrics.MsgLabel(d.Header.MessageID)).Inc()
		}
		return h(term, d)
	}
}

func (g *Gateway) reply(term *Terminal, d *jt808.Decoded, result jt808.PlatformResult) error {
	_, err := term.Send(jt808.PlatformCommonResponse{
		ResponseSerialNumber: d.Header.SerialNumber,
		ResponseMessageID:    d.Header.MessageID,
		Result:               result,
	})
	return err
}

func (g *Gateway) handleHeartbeat(term *Terminal, d *jt808.Decoded) error {
	if g.appm != nil {
		g.appm.HeartbeatTotal.Inc()
	}
	return g.reply(term, d, jt808.PlatformResultSuccess)
}

func (g *Gateway) handleAuthentication(term *Terminal, d *jt808.Decoded) error {
	auth := d.Message.(jt808.TerminalAuthentication)
	phone := d.Header.PhoneNumber
	if g.authenticate != nil && !g.authenticate(phone, auth.AuthCode) {
		g.logger.Warn("terminal authentication rejected", zap.String("phone", phone))
		return g.reply(term, d, jt808.PlatformResultFailure)
	}

	first := term.setAuthed()
	g.sess.Bind(phone, term)
	if g.appm != nil {
		g.appm.OnlineGauge.Set(float64(g.sess.OnlineCount(time.Now())))
	}
	if first {
		g.logger.Info("terminal online",
			zap.String("phone", phone),
			zap.String("remote_addr", term.conn.RemoteAddr().String()),
			zap.Bool("v2019", d.Header.Property.VersionFlag()),
		)
	}
	if err := g.reply(term, d, jt808.PlatformResultSuccess); err != nil {
		return err
	}
	if g.queue != nil {
		go g.flush(term, phone)
	}
	return nil
}

func (g *Gateway) handleLogout(term *Terminal, d *jt808.Decoded) error {
	// 注销只解除会话绑定，连接保持可用，终端可在同一连接上重新鉴权
	err := g.reply(term, d, jt808.PlatformResultSuccess)
	term.clearAuthed()
	g.unbind(term, "logout")
	return err
}

func (g *Gateway) handleLocation(term *Terminal, d *jt808.Decoded) error {
	loc := d.Message.(jt808.LocationReport)
	g.logger.Debug("location report",
		zap.String("phone", d.Header.PhoneNumber),
		zap.Float64("lat", float64(loc.Latitude)/1e6),
		zap.Float64("lng", float64(loc.Longitude)/1e6),
		zap.Float64("speed_kmh", float64(loc.Speed)/10),
		zap.String("time", loc.Time),
		zap.Uint32("alarm", loc.Alarm),
	)
	return g.reply(term, d, jt808.PlatformResultSuccess)
}

// handleCommonResponse 终端通用应答只用于唤醒等待中的请求，平台不再应答
func (g *Gateway) handleCommonResponse(term *Terminal, d *jt808.Decoded) error {
	resp := d.Message.(jt808.TerminalCommonResponse)
	if !term.resolve(resp.ResponseSerialNumber, resp) {
		g.logger.Debug("terminal response without pending request",
			zap.String("phone", d.Header.PhoneNumber),
			zap.Uint16("serial", resp.ResponseSerialNumber),
			zap.String("result", resp.Result.String()),
		)
	}
	return nil
}

func (g *Gateway) handleQueryResponse(term *Terminal, d *jt808.Decoded) error {
	switch resp := d.Message.(type) {
	case jt808.QueryParametersResponse:
		term.resolve(resp.ResponseSerialNumber, resp)
	case jt808.PositionQueryResponse:
		term.resolve(resp.ResponseSerialNumber, resp)
	case jt808.VehicleControlResponse:
		term.resolve(resp.ResponseSerialNumber, resp)
	case jt808.QueryPropertyResponse:
		term.resolveByRequest(jt808.MsgQueryTerminalProperty, resp)
	}
	return g.reply(term, d, jt808.PlatformResultSuccess)
}

// handleGeneric 其余上行消息统一通用应答；平台方向的消息ID不应由终端上送
func (g *Gateway) handleGeneric(term *Terminal, d *jt808.Decoded) error {
	if !jt808.IsUplink(d.Header.MessageID) {
		g.logger.Warn("downlink message id from terminal",
			zap.String("phone", d.Header.PhoneNumber),
			zap.String("msg_id", metrics.MsgLabel(d.Header.MessageID)),
		)
		return nil
	}
	return g.reply(term, d, jt808.PlatformResultSuccess)
}

// detach 连接断开：拒绝后续发送，会话仍绑定在该连接上时解绑
func (g *Gateway) detach(term *Terminal, reason string) {
	if !term.detach() {
		return
	}
	g.unbind(term, reason)
}

// unbind 会话仍指向该终端时解除绑定
func (g *Gateway) unbind(term *Terminal, reason string) {
	phone := term.Phone()
	if phone == "" {
		return
	}
	if conn, ok := g.sess.GetConn(phone); ok && conn == term {
		g.sess.OnTCPClosed(phone, time.Now())
		g.sess.UnbindByPhone(phone)
		g.logger.Info("terminal offline", zap.String("phone", phone), zap.String("reason", reason))
		if g.appm != nil {
			g.appm.OfflineTotal.WithLabelValues(reason).Inc()
			g.appm.OnlineGauge.Set(float64(g.sess.OnlineCount(time.Now())))
		}
	}
}

// --- 下行 ---

func (g *Gateway) terminal(phone string) (*Terminal, bool) {
	conn, ok := g.sess.GetConn(phone)
	if !ok {
		return nil, false
	}
	term, ok := conn.(*Terminal)
	return term, ok
}

// Send 向终端下发消息；终端不在线且配置了离线队列时入队，待终端鉴权后补发
func (g *Gateway) Send(ctx context.Context, phone string, m jt808.Message) (Delivery, error) {
	if term, ok := g.terminal(phone); ok {
		_, err := term.Send(m)
		if err == nil {
			g.countDownlink("sent")
			return DeliverySent, nil
		}
		if !errors.Is(err, ErrTerminalOffline) && !errors.Is(err, tcpserver.ErrConnClosed) {
			g.countDownlink("error")
			return "", err
		}
	}
	if g.queue == nil {
		return "", ErrTerminalOffline
	}
	if err := g.enqueue(ctx, phone, m); err != nil {
		g.countDownlink("error")
		return "", err
	}
	g.countDownlink("queued")
	return DeliveryQueued, nil
}

// Request 向在线终端下发消息并等待对应应答
func (g *Gateway) Request(ctx context.Context, phone string, m jt808.Message) (jt808.Message, error) {
	term, ok := g.terminal(phone)
	if !ok {
		return nil, ErrTerminalOffline
	}
	resp, err := term.Request(ctx, m)
	if err != nil {
		g.countDownlink("error")
		return nil, err
	}
	g.countDownlink("sent")
	return resp, nil
}

func (g *Gateway) enqueue(ctx context.Context, phone string, m jt808.Message) error {
	body, err := g.codec.Registry().EncodeBody(m)
	if err != nil {
		return err
	}
	msg := &redisstore.DownlinkMessage{
		Phone:     phone,
		MessageID: m.MessageID(),
		Body:      body,
		MaxRetry:  g.maxRetry,
	}
	return g.breaker.Do(func() error { return g.queue.Push(ctx, msg) })
}

// flush 终端上线后补发离线期间积压的指令
func (g *Gateway) flush(term *Terminal, phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var msgs []*redisstore.DownlinkMessage
	err := g.breaker.Do(func() error {
		var err error
		msgs, err = g.queue.Drain(ctx, phone, 100)
		return err
	})
	if err != nil {
		g.logger.Warn("drain downlink queue failed", zap.String("phone", phone), zap.Error(err))
		return
	}

	for _, msg := range msgs {
		m, err := g.codec.Registry().DecodeBody(msg.MessageID, msg.Body)
		if err != nil {
			g.logger.Warn("drop undecodable downlink",
				zap.String("phone", phone),
				zap.String("id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if _, err := term.Send(m); err != nil {
			g.countDownlink("error")
			if ferr := g.queue.MarkFailed(ctx, msg, err); ferr != nil {
				g.logger.Warn("requeue downlink failed", zap.String("id", msg.ID), zap.Error(ferr))
			}
			continue
		}
		g.countDownlink("sent")
	}
	if len(msgs) > 0 {
		g.logger.Info("queued downlink flushed", zap.String("phone", phone), zap.Int("count", len(msgs)))
	}
}

func (g *Gateway) countDownlink(result string) {
	if g.appm != nil {
		g.appm.DownlinkTotal.WithLabelValues(result).Inc()
	}
}

// --- 维护 ---

// Sweep 丢弃超时未收齐的上行分包组并刷新在线数指标
func (g *Gateway) Sweep(now time.Time) {
	r := g.codec.Reassembler()
	for key, missing := range r.Stale(now.Add(-g.reassemblyTimeout)) {
		g.logger.Warn("subpackage group timed out",
			zap.String("phone", key.Terminal),
			zap.String("msg_id", metrics.MsgLabel(key.MessageID)),
			zap.Uint16s("missing", missing),
		)
	}
	evicted := r.Evict(now.Add(-g.reassemblyTimeout))
	if g.appm != nil {
		g.appm.ReassemblyEvicted.Add(float64(len(evicted)))
		g.appm.ReassemblyPending.Set(float64(r.Pending()))
		g.appm.OnlineGauge.Set(float64(g.sess.OnlineCount(now)))
	}
}

// Run 按 interval 周期执行 Sweep，直至 ctx 结束
func (g *Gateway) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Sweep(now)
		}
	}
}
