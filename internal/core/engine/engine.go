package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/lib/log"
	"github.com/dep2p/go-enet/pkg/types"
)

var logger = log.Logger("enet/engine")

// 确保实现了接口
var _ interfaces.Engine = (*Engine)(nil)

// Version 引擎实现的协议版本
var Version = types.NewVersion(1, 3, 18)

// Engine 参考引擎
//
// 协议状态机在这里实现，数据报的收发委托给可插拔的 interfaces.Network。
// 引擎本身不启动 goroutine，所有协议处理都发生在 HostService 调用内。
type Engine struct {
	network interfaces.Network
	clock   clock.Clock
	cfg     Config
	epoch   time.Time

	mu          sync.Mutex
	initialized bool
	hosts       map[*Host]struct{}
}

// Option 引擎选项
type Option func(*Engine)

// WithConfig 设置引擎配置
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock 设置时钟（测试时使用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New 创建引擎
func New(network interfaces.Network, opts ...Option) *Engine {
	e := &Engine{
		network: network,
		clock:   clock.New(),
		cfg:     DefaultConfig(),
		hosts:   make(map[*Host]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.epoch = e.clock.Now()
	return e
}

// now 引擎毫秒时间，从 1 开始
func (e *Engine) now() uint32 {
	return uint32(e.clock.Since(e.epoch)/time.Millisecond) + 1
}

func (e *Engine) newConnectID() uint32 {
	for {
		if id := uuid.New().ID(); id != 0 {
			return id
		}
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Initialize 启动引擎
func (e *Engine) Initialize() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}
	e.initialized = true
	logger.Debug("引擎已初始化", "version", Version)
	return nil
}

// Deinitialize 关闭引擎，销毁仍未销毁的主机
func (e *Engine) Deinitialize() {
	e.mu.Lock()
	hosts := make([]*Host, 0, len(e.hosts))
	for h := range e.hosts {
		hosts = append(hosts, h)
	}
	e.hosts = make(map[*Host]struct{})
	e.initialized = false
	e.mu.Unlock()

	for _, h := range hosts {
		logger.Warn("引擎关闭时主机仍未销毁", "addr", h.Address())
		if err := h.destroy(); err != nil {
			logger.Debug("关闭套接字失败", "error", err)
		}
	}
	logger.Debug("引擎已关闭")
}

// LinkedVersion 返回引擎版本
func (e *Engine) LinkedVersion() types.Version {
	return Version
}

// ============================================================================
//                              主机操作
// ============================================================================

// HostCreate 创建主机并打开套接字
func (e *Engine) HostCreate(bind *types.Address, peerCount, channelLimit int, incomingBandwidth, outgoingBandwidth uint32) (interfaces.RawHost, error) {
	if peerCount <= 0 || peerCount > types.MaxPeers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeerCount, peerCount)
	}
	if channelLimit <= 0 || channelLimit > types.MaxChannelCount {
		channelLimit = types.MaxChannelCount
	}

	e.mu.Lock()
	initialized := e.initialized
	e.mu.Unlock()
	if !initialized {
		return nil, ErrNotInitialized
	}

	socket, err := e.network.Open(bind)
	if err != nil {
		return nil, fmt.Errorf("open socket: %w", err)
	}

	h := newHost(e, socket, peerCount, channelLimit, incomingBandwidth, outgoingBandwidth)
	e.mu.Lock()
	e.hosts[h] = struct{}{}
	e.mu.Unlock()

	logger.Debug("主机已创建",
		"addr", socket.LocalAddr(),
		"peers", peerCount,
		"channels", channelLimit)
	return h, nil
}

// HostDestroy 销毁主机
func (e *Engine) HostDestroy(host interfaces.RawHost) {
	h := e.host(host)
	e.mu.Lock()
	delete(e.hosts, h)
	e.mu.Unlock()

	if err := h.destroy(); err != nil {
		logger.Debug("关闭套接字失败", "addr", h.Address(), "error", err)
	}
	logger.Debug("主机已销毁", "addr", h.Address())
}

// HostConnect 发起连接
func (e *Engine) HostConnect(host interfaces.RawHost, addr types.Address, channelCount int, data uint32) (interfaces.RawPeer, error) {
	h := e.host(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHostClosed
	}
	p, err := h.connect(addr, channelCount, data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// HostService 推进协议并返回下一个事件
func (e *Engine) HostService(host interfaces.RawHost, timeout time.Duration) (interfaces.EventRecord, error) {
	return e.host(host).service(timeout)
}

// HostCheckEvents 派发已排队的事件
func (e *Engine) HostCheckEvents(host interfaces.RawHost) (interfaces.EventRecord, error) {
	return e.host(host).checkEvents()
}

// HostFlush 发送所有排队的帧
func (e *Engine) HostFlush(host interfaces.RawHost) {
	h := e.host(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.flush()
	}
}

// HostBroadcast 向所有已连接节点发送数据包，数据包随后被销毁
func (e *Engine) HostBroadcast(host interfaces.RawHost, channelID uint8, packet interfaces.RawPacket) {
	h := e.host(host)
	pkt := e.packet(packet)
	h.mu.Lock()
	if !h.closed {
		h.broadcast(channelID, pkt)
	}
	h.mu.Unlock()
	pkt.destroy()
}

// ============================================================================
//                              节点操作
// ============================================================================

// PeerSend 向节点发送数据包
func (e *Engine) PeerSend(peer interfaces.RawPeer, channelID uint8, packet interfaces.RawPacket) error {
	p := e.peer(peer)
	pkt := e.packet(packet)
	if pkt.Destroyed() {
		return ErrPacketDestroyed
	}

	h := p.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if err := h.send(p, channelID, pkt); err != nil {
		return err
	}
	pkt.destroy()
	return nil
}

// PeerDisconnect 优雅断开
func (e *Engine) PeerDisconnect(peer interfaces.RawPeer, data uint32) {
	e.withPeer(peer, func(h *Host, p *Peer) { h.disconnect(p, data) })
}

// PeerDisconnectNow 立即断开
func (e *Engine) PeerDisconnectNow(peer interfaces.RawPeer, data uint32) {
	e.withPeer(peer, func(h *Host, p *Peer) { h.disconnectNow(p, data) })
}

// PeerDisconnectLater 排队数据发送完毕后断开
func (e *Engine) PeerDisconnectLater(peer interfaces.RawPeer, data uint32) {
	e.withPeer(peer, func(h *Host, p *Peer) { h.disconnectLater(p, data) })
}

// PeerReset 本地强制断开
func (e *Engine) PeerReset(peer interfaces.RawPeer) {
	e.withPeer(peer, func(h *Host, p *Peer) { h.resetPeer(p) })
}

// PeerPing 立即发送 ping
func (e *Engine) PeerPing(peer interfaces.RawPeer) {
	e.withPeer(peer, func(h *Host, p *Peer) {
		if p.state == types.PeerStateConnected {
			p.ping(e.now())
		}
	})
}

// PeerPingInterval 设置 ping 间隔，0 表示默认值
func (e *Engine) PeerPingInterval(peer interfaces.RawPeer, interval uint32) {
	e.withPeer(peer, func(h *Host, p *Peer) {
		if interval == 0 {
			interval = millis(e.cfg.PingInterval)
		}
		p.pingInterval = interval
	})
}

// PeerTimeout 设置超时参数，0 表示默认值
func (e *Engine) PeerTimeout(peer interfaces.RawPeer, limit, minimum, maximum uint32) {
	e.withPeer(peer, func(h *Host, p *Peer) {
		if limit == 0 {
			limit = e.cfg.TimeoutLimit
		}
		if minimum == 0 {
			minimum = millis(e.cfg.TimeoutMinimum)
		}
		if maximum == 0 {
			maximum = millis(e.cfg.TimeoutMaximum)
		}
		p.timeoutLimit = limit
		p.timeoutMinimum = minimum
		p.timeoutMaximum = maximum
	})
}

// ============================================================================
//                              数据包
// ============================================================================

// PacketCreate 创建数据包
func (e *Engine) PacketCreate(data []byte, flags types.PacketFlags) (interfaces.RawPacket, error) {
	if len(data) > e.cfg.MaximumPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}
	return newPacket(data, flags), nil
}

// PacketDestroy 销毁数据包
func (e *Engine) PacketDestroy(packet interfaces.RawPacket) {
	e.packet(packet).destroy()
}

// ============================================================================
//                              句柄校验
// ============================================================================

func (e *Engine) host(h interfaces.RawHost) *Host {
	eh, ok := h.(*Host)
	if !ok || eh.engine != e {
		panic(fmt.Sprintf("engine: foreign host handle %T", h))
	}
	return eh
}

func (e *Engine) peer(p interfaces.RawPeer) *Peer {
	ep, ok := p.(*Peer)
	if !ok || ep.host.engine != e {
		panic(fmt.Sprintf("engine: foreign peer handle %T", p))
	}
	return ep
}

func (e *Engine) packet(p interfaces.RawPacket) *Packet {
	ep, ok := p.(*Packet)
	if !ok {
		panic(fmt.Sprintf("engine: foreign packet handle %T", p))
	}
	return ep
}

func (e *Engine) withPeer(peer interfaces.RawPeer, fn func(h *Host, p *Peer)) {
	p := e.peer(peer)
	h := p.host
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	fn(h, p)
}
