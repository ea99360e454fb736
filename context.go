package enet

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/lib/log"
)

var logger = log.Logger("enet")

// alive 进程内是否存在存活的引擎会话
var alive atomic.Bool

// Context 引擎会话
//
// 同一时刻进程内最多存在一个会话。Close 释放 Context 自身的引用；
// 它创建的主机各持有一个引用，全部释放后引擎才反初始化。
type Context struct {
	core  *contextCore
	owner *owner
}

type contextCore struct {
	engine   interfaces.Engine
	cfg      *config.Config
	resolver *Resolver
	guard    *guard
}

// Initialize 创建引擎会话
//
// 已有存活会话时返回 ErrAlreadyInitialized；引擎初始化失败时返回
// 包装了原因的 ErrEngineInit。
func Initialize(opts ...Option) (*Context, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	if !alive.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	eng := o.engine
	if eng == nil {
		eng = newEngine(o.config)
	}
	if err := eng.Initialize(); err != nil {
		alive.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}

	core := &contextCore{
		engine:   eng,
		cfg:      o.config,
		resolver: NewResolver(o.config.Host.ResolveCacheSize, o.config.Host.ResolveCacheTTL.Duration()),
	}
	core.guard = newGuard(core.teardown)

	c := &Context{core: core, owner: core.guard.own()}
	runtime.AddCleanup(c, releaseOwner, c.owner)

	logger.Debug("引擎会话已初始化", "version", eng.LinkedVersion(), "network", o.config.Engine.Network)
	return c, nil
}

func (c *contextCore) teardown() {
	if !alive.CompareAndSwap(true, false) {
		panic("enet: context teardown without a live session")
	}
	c.engine.Deinitialize()
	logger.Debug("引擎会话已关闭")
}

// Close 释放 Context 的引用
//
// 重复调用无副作用。
func (c *Context) Close() {
	c.owner.release()
}

// LinkedVersion 返回引擎版本
func (c *Context) LinkedVersion() Version {
	return c.core.engine.LinkedVersion()
}

// Config 返回会话使用的配置
func (c *Context) Config() *config.Config {
	return c.core.cfg
}

// ResolveAddress 解析主机名，结果按配置缓存
func (c *Context) ResolveAddress(ctx context.Context, host string, port uint16) (Address, error) {
	return c.core.resolver.Resolve(ctx, host, port)
}

// ============================================================================
//                              创建主机
// ============================================================================

// CreateHost 创建主机
//
// peerCount 超过 MaxPeers 时返回 *TooManyPeersError，通道上限超过
// MaxChannelCount 时返回 *TooManyChannelsError，两者都不会调用引擎。
func (c *Context) CreateHost(peerCount uint32, opts ...HostOption) (*Host, error) {
	if !c.owner.live() {
		return nil, ErrContextClosed
	}

	var o hostOptions
	for _, opt := range opts {
		opt(&o)
	}
	if peerCount > MaxPeers {
		return nil, &TooManyPeersError{Count: peerCount}
	}
	if o.channelLimit > MaxChannelCount {
		return nil, &TooManyChannelsError{Count: o.channelLimit}
	}

	raw, err := c.core.engine.HostCreate(o.bind, int(peerCount), int(o.channelLimit), o.incomingBandwidth, o.outgoingBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReturnedNull, err)
	}
	if raw == nil {
		return nil, ErrReturnedNull
	}

	h := newHost(c.core, raw)
	logger.Debug("主机已创建",
		"addr", raw.Address(),
		"server", o.bind != nil,
		"peers", peerCount,
		"channels", raw.ChannelLimit())
	return h, nil
}

// CreateClientHost 创建仅出站的主机
func (c *Context) CreateClientHost(peerCount, incomingBandwidth, outgoingBandwidth uint32) (*Host, error) {
	return c.CreateHost(peerCount,
		WithIncomingBandwidth(incomingBandwidth),
		WithOutgoingBandwidth(outgoingBandwidth))
}

// CreateServerHost 创建绑定 addr 的服务端主机
func (c *Context) CreateServerHost(addr Address, peerCount, channelLimit, incomingBandwidth, outgoingBandwidth uint32) (*Host, error) {
	return c.CreateHost(peerCount,
		WithBindAddress(addr),
		WithChannelLimit(channelLimit),
		WithIncomingBandwidth(incomingBandwidth),
		WithOutgoingBandwidth(outgoingBandwidth))
}

// CreateHostFromConfig 按主机配置创建主机
//
// ListenAddr 为空时创建客户端主机。
func (c *Context) CreateHostFromConfig(hc config.HostConfig) (*Host, error) {
	opts := []HostOption{
		WithChannelLimit(hc.ChannelLimit),
		WithIncomingBandwidth(hc.IncomingBandwidth),
		WithOutgoingBandwidth(hc.OutgoingBandwidth),
	}
	if hc.ListenAddr != "" {
		addr, err := ParseAddress(hc.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("listen address: %w", err)
		}
		opts = append(opts, WithBindAddress(addr))
	}
	return c.CreateHost(hc.PeerCount, opts...)
}
