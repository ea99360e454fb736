package quicnet

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/lib/log"
	"github.com/dep2p/go-enet/pkg/types"
)

var logger = log.Logger("enet/quicnet")

var _ interfaces.Network = (*Network)(nil)

// Config QUIC 网络配置
type Config struct {
	MaxIdleTimeout   time.Duration
	KeepAlivePeriod  time.Duration
	HandshakeTimeout time.Duration
	QueueSize        int
	MTU              int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return FromConfig(config.DefaultQUICConfig())
}

// FromConfig 从全局配置转换
func FromConfig(c config.QUICConfig) Config {
	return Config{
		MaxIdleTimeout:   c.MaxIdleTimeout.Duration(),
		KeepAlivePeriod:  c.KeepAlivePeriod.Duration(),
		HandshakeTimeout: c.HandshakeTimeout.Duration(),
		QueueSize:        c.QueueSize,
		MTU:              c.MTU,
	}
}

func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:       c.MaxIdleTimeout,
		KeepAlivePeriod:      c.KeepAlivePeriod,
		HandshakeIdleTimeout: c.HandshakeTimeout,
		EnableDatagrams:      true,
	}
}

// Network QUIC 网络
type Network struct {
	cfg Config
}

// New 创建 QUIC 网络
func New(cfg Config) *Network {
	return &Network{cfg: cfg}
}

// Open 打开套接字
//
// bind 为 nil 时绑定临时端口且不接受入站连接。
func (n *Network) Open(bind *types.Address) (interfaces.Socket, error) {
	laddr := &net.UDPAddr{IP: net.IPv4zero}
	if bind != nil {
		if !bind.IsValid() {
			return nil, fmt.Errorf("quicnet: %w", types.ErrInvalidAddress)
		}
		if !bind.IP().Is4() {
			return nil, ErrNotIPv4
		}
		laddr = bind.UDPAddr()
	}

	serverTLS, clientTLS, err := newTLSConfig()
	if err != nil {
		return nil, err
	}

	udp, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	s := &socket{
		cfg:       n.cfg,
		qconf:     n.cfg.quicConfig(),
		clientTLS: clientTLS,
		udp:       udp,
		tr:        &quic.Transport{Conn: udp},
		local:     types.AddressFromUDP(udp.LocalAddr().(*net.UDPAddr)),
		ctx:       gctx,
		cancel:    cancel,
		g:         g,
		links:     make(map[types.Address]*link),
		incoming:  make(chan interfaces.Datagram, n.cfg.QueueSize),
	}

	if bind != nil {
		ln, err := s.tr.Listen(serverTLS, s.qconf)
		if err != nil {
			cancel()
			_ = s.tr.Close()
			_ = udp.Close()
			return nil, fmt.Errorf("listen quic: %w", err)
		}
		s.ln = ln
		g.Go(s.accept)
	}

	logger.Debug("套接字已打开", "addr", s.local, "listen", bind != nil)
	return s, nil
}
