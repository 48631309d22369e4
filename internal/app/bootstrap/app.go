package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/jt808-gateway/internal/api"
	"github.com/taoyao-code/jt808-gateway/internal/api/middleware"
	"github.com/taoyao-code/jt808-gateway/internal/app"
	cfgpkg "github.com/taoyao-code/jt808-gateway/internal/config"
	"github.com/taoyao-code/jt808-gateway/internal/health"
	"github.com/taoyao-code/jt808-gateway/internal/metrics"
	"github.com/taoyao-code/jt808-gateway/internal/session"
)

// Run 统一启动流程：依赖就绪后最后启动TCP服务，收到信号后优雅关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting jt808 gateway", zap.String("env", cfg.App.Env))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)
	ready := health.NewReadiness(cfg.Redis.Enabled)
	serverID := app.GenerateServerID(cfg.Session.ServerID)

	// ========== 阶段2: Redis（启用时失败直接返回）==========
	redisClient, err := app.NewRedisClient(context.Background(), cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		ready.SetRedisReady(true)
	}
	queue := app.NewDownlinkQueue(redisClient, cfg.JT808.DownlinkTTL)
	sess := app.NewSessionManager(cfg.Session, redisClient, serverID, log)

	// ========== 阶段3: 协议与网关 ==========
	codec, err := app.NewCodec(cfg.JT808)
	if err != nil {
		return err
	}
	gw := app.NewGateway(cfg.JT808, codec, sess, queue, appm, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gw.Run(ctx, cfg.JT808.EvictInterval)
	log.Info("jt808 gateway initialized",
		zap.String("version", cfg.JT808.Version),
		zap.Int("fragment_size", cfg.JT808.FragmentSize),
		zap.Bool("offline_queue", queue != nil))

	// ========== 阶段4: HTTP服务（非阻塞）==========
	healthAgg := app.NewHealthAggregator(gw)
	app.AddRedisChecker(healthAgg, redisClient, queue)

	handler := api.NewTerminalHandler(gw, sess, cfg.HTTP.RequestTimeout, log)
	authCfg := middleware.AuthConfig{APIKeys: cfg.HTTP.APIKeys, Enabled: cfg.HTTP.AuthEnabled}
	httpSrv := app.NewHTTPServer(cfg.HTTP, cfg.Metrics.Path, metricsHandler, ready.Ready, func(r *gin.Engine) {
		api.RegisterTerminalRoutes(r, handler, authCfg, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ========== 阶段5: 最后启动TCP服务 ==========
	tcpSrv := app.NewTCPServer(cfg.TCP, appm, log)
	tcpSrv.SetConnHandler(gw.ConnHandler())
	if err := tcpSrv.Start(); err != nil {
		log.Error("tcp server start failed", zap.Error(err))
		return err
	}
	ready.SetTCPReady(true)
	app.AddTCPChecker(healthAgg, tcpSrv)
	log.Info("tcp server started", zap.String("addr", cfg.TCP.Addr))

	// ========== 阶段6: 等待关闭信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, gracefully shutting down...")
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	_ = httpSrv.Shutdown(sctx)
	log.Info("http server stopped")

	_ = tcpSrv.Shutdown(sctx)
	log.Info("tcp server stopped")

	// 清理本实例在 Redis 中登记的连接映射
	if rm, ok := sess.(*session.RedisManager); ok {
		if err := rm.Cleanup(); err != nil {
			log.Warn("session cleanup failed", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
	return nil
}
