package tcpserver

import (
	"time"

	"go.uber.org/zap"

	padapter "github.com/taoyao-code/jt808-gateway/internal/protocol/adapter"
)

// sniffLen 首帧初判使用的前缀长度
const sniffLen = 8

// Mux 多协议复用器：首帧初判 -> 绑定协议 -> 直通处理
// 适配器持有连接级的拆帧状态，每个连接单独构建一个 Mux
type Mux struct {
	adapters []padapter.Adapter
	logger   *zap.Logger
}

func NewMux(logger *zap.Logger, adapters ...padapter.Adapter) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mux{adapters: adapters, logger: logger}
}

// BindToConn 为连接安装 onRead，根据首包前缀判断协议后固定处理路径
// 首包无法识别时关闭连接
func (m *Mux) BindToConn(cc *ConnContext) {
	var bound padapter.Adapter
	start := time.Now()

	cc.SetOnRead(func(p []byte) {
		if bound != nil {
			m.process(cc, bound, p)
			return
		}

		pref := p
		if len(pref) > sniffLen {
			pref = pref[:sniffLen]
		}
		for _, a := range m.adapters {
			if !a.Sniff(pref) {
				continue
			}
			bound = a
			cc.SetProtocol(a.Name())
			m.logger.Info("protocol identified",
				zap.Uint64("conn_id", cc.ID()),
				zap.String("remote_addr", cc.RemoteAddr().String()),
				zap.String("protocol", a.Name()),
				zap.Duration("identification_duration", time.Since(start)),
			)
			m.process(cc, a, p)
			return
		}

		m.logger.Warn("unknown protocol, closing connection",
			zap.Uint64("conn_id", cc.ID()),
			zap.String("remote_addr", cc.RemoteAddr().String()),
			zap.Binary("prefix", pref),
		)
		_ = cc.Close()
	})
}

func (m *Mux) process(cc *ConnContext, a padapter.Adapter, p []byte) {
	if err := a.ProcessBytes(p); err != nil {
		m.logger.Warn("handle uplink failed",
			zap.Uint64("conn_id", cc.ID()),
			zap.String("protocol", a.Name()),
			zap.Error(err),
		)
	}
}
