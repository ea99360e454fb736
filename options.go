package enet

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/internal/core/engine"
	"github.com/dep2p/go-enet/internal/core/engine/memnet"
	"github.com/dep2p/go-enet/internal/core/engine/quicnet"
	"github.com/dep2p/go-enet/pkg/interfaces"
)

// ============================================================================
//                              Context 选项
// ============================================================================

// Option Initialize 的配置选项
type Option func(*options) error

type options struct {
	engine interfaces.Engine
	config *config.Config
}

func newOptions(opts []Option) (*options, error) {
	o := &options{config: config.NewConfig()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return o, nil
}

// WithEngine 使用给定的引擎实现
//
// 未设置时按配置创建内置引擎。
func WithEngine(e interfaces.Engine) Option {
	return func(o *options) error {
		if e == nil {
			return errors.New("engine must not be nil")
		}
		o.engine = e
		return nil
	}
}

// WithConfig 使用给定的配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		o.config = cfg
		return nil
	}
}

// newEngine 按配置创建内置引擎
func newEngine(cfg *config.Config) interfaces.Engine {
	var network interfaces.Network
	switch cfg.Engine.Network {
	case config.NetworkMemory:
		network = memnet.New()
	default:
		network = quicnet.New(quicnet.FromConfig(cfg.QUIC))
	}
	return engine.New(network, engine.WithConfig(engine.FromConfig(cfg.Engine)))
}

// ============================================================================
//                              Host 选项
// ============================================================================

// HostOption CreateHost 的配置选项
type HostOption func(*hostOptions)

type hostOptions struct {
	bind              *Address
	channelLimit      uint32
	incomingBandwidth uint32
	outgoingBandwidth uint32
}

// WithBindAddress 绑定本地地址，创建可接受连接的服务端主机
func WithBindAddress(addr Address) HostOption {
	return func(o *hostOptions) {
		o.bind = &addr
	}
}

// WithChannelLimit 入站连接的最大通道数，0 表示引擎最大值
func WithChannelLimit(limit uint32) HostOption {
	return func(o *hostOptions) {
		o.channelLimit = limit
	}
}

// WithIncomingBandwidth 入站带宽（字节/秒），0 表示不限制
func WithIncomingBandwidth(bps uint32) HostOption {
	return func(o *hostOptions) {
		o.incomingBandwidth = bps
	}
}

// WithOutgoingBandwidth 出站带宽（字节/秒），0 表示不限制
func WithOutgoingBandwidth(bps uint32) HostOption {
	return func(o *hostOptions) {
		o.outgoingBandwidth = bps
	}
}
