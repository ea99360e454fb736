package enet

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

// Host 一个本地引擎会话（客户端或服务端）
//
// 引擎主机在最后一个引用释放时销毁：Host 自身、它的克隆，以及由它
// 产生的每个 Peer 各持有一个引用。Host 持有 Context 的引用，因此引擎
// 总是在所有主机销毁之后才反初始化。
//
// 同一主机及其 Peer 不应被多个 goroutine 并发操作。
type Host struct {
	core  *hostCore
	owner *owner
}

type hostCore struct {
	engine   interfaces.Engine
	raw      interfaces.RawHost
	ctxOwner *owner
	guard    *guard
}

func newHost(ctx *contextCore, raw interfaces.RawHost) *Host {
	core := &hostCore{
		engine:   ctx.engine,
		raw:      raw,
		ctxOwner: ctx.guard.own(),
	}
	core.guard = newGuard(core.teardown)
	return core.handle()
}

// handle 创建一个持有引用的主机句柄
func (c *hostCore) handle() *Host {
	h := &Host{core: c, owner: c.guard.own()}
	runtime.AddCleanup(h, releaseOwner, h.owner)
	return h
}

func (c *hostCore) teardown() {
	addr := c.raw.Address()
	c.engine.HostDestroy(c.raw)
	logger.Debug("主机已销毁", "addr", addr)
	c.ctxOwner.release()
}

// Close 释放 Host 的引用
//
// 仍被 Peer 引用时引擎主机保持存活，但该 Host 值不能再使用。
func (h *Host) Close() {
	h.owner.release()
}

// Clone 返回共享同一引擎主机的新句柄
func (h *Host) Clone() *Host {
	if !h.owner.live() {
		panic("enet: clone of closed host")
	}
	defer runtime.KeepAlive(h)
	return h.core.handle()
}

// ============================================================================
//                              连接与服务
// ============================================================================

// Connect 向 addr 发起连接
//
// 返回处于 Connecting 状态的 Peer。对端确认后 Service 返回 Connect 事件；
// 发起方之后还需要调用一次 Flush 或 Service 把最后的确认发出去。
func (h *Host) Connect(addr Address, channelCount uint8, data uint32) (*Peer, error) {
	if !h.owner.live() {
		return nil, ErrHostClosed
	}
	defer runtime.KeepAlive(h)
	raw := h.core.raw
	if raw.PeerCount() <= raw.ConnectedPeers() {
		return nil, ErrNoPeersAvailable
	}

	p, err := h.core.engine.HostConnect(raw, addr, int(channelCount), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailure, err)
	}
	if p == nil {
		return nil, ErrConnectFailure
	}
	logger.Debug("发起连接", "local", raw.Address(), "remote", addr, "channels", channelCount)
	return newPeer(h.core, p), nil
}

// Service 推进协议并返回下一个事件，最多等待 timeout
//
// 没有事件时返回 nil, nil；timeout 为 0 时不阻塞。
func (h *Host) Service(timeout time.Duration) (*Event, error) {
	if !h.owner.live() {
		return nil, ErrHostClosed
	}
	defer runtime.KeepAlive(h)
	rec, err := h.core.engine.HostService(h.core.raw, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}
	return newEvent(h.core, rec), nil
}

// CheckEvents 返回已排队的下一个事件，不做网络 I/O
func (h *Host) CheckEvents() (*Event, error) {
	if !h.owner.live() {
		return nil, ErrHostClosed
	}
	defer runtime.KeepAlive(h)
	rec, err := h.core.engine.HostCheckEvents(h.core.raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return newEvent(h.core, rec), nil
}

// Flush 立即发送所有排队的数据，不派发事件
func (h *Host) Flush() {
	if !h.owner.live() {
		return
	}
	defer runtime.KeepAlive(h)
	h.core.engine.HostFlush(h.core.raw)
}

// Broadcast 向所有已连接节点发送数据包
//
// 不校验各节点的通道数，通道号无效的节点由引擎忽略。
func (h *Host) Broadcast(channelID uint8, packet Packet) error {
	if !h.owner.live() {
		return ErrHostClosed
	}
	defer runtime.KeepAlive(h)
	if err := packet.validate(h.core.raw.MaximumPacketSize()); err != nil {
		return err
	}
	raw, err := h.core.engine.PacketCreate(packet.data, packet.engineFlags())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPacketCreateMallocFailure, err)
	}
	if raw == nil {
		return ErrPacketCreateMallocFailure
	}
	h.core.engine.HostBroadcast(h.core.raw, channelID, raw)
	return nil
}

// ============================================================================
//                              计数器
// ============================================================================

// raw 返回仍可访问的引擎主机
//
// Host 已关闭时返回 false：计数器读数为零，重置为空操作。
func (h *Host) raw() (interfaces.RawHost, bool) {
	if !h.owner.live() {
		return nil, false
	}
	return h.core.raw, true
}

// PeerCount 节点槽位数
func (h *Host) PeerCount() int {
	raw, ok := h.raw()
	if !ok {
		return 0
	}
	defer runtime.KeepAlive(h)
	return raw.PeerCount()
}

// ConnectedPeers 已连接节点数
func (h *Host) ConnectedPeers() int {
	raw, ok := h.raw()
	if !ok {
		return 0
	}
	defer runtime.KeepAlive(h)
	return raw.ConnectedPeers()
}

// ChannelLimit 入站连接的最大通道数
func (h *Host) ChannelLimit() int {
	raw, ok := h.raw()
	if !ok {
		return 0
	}
	defer runtime.KeepAlive(h)
	return raw.ChannelLimit()
}

// MaximumPacketSize 允许的最大数据包大小
func (h *Host) MaximumPacketSize() int {
	raw, ok := h.raw()
	if !ok {
		return 0
	}
	defer runtime.KeepAlive(h)
	return raw.MaximumPacketSize()
}

// Address 本地绑定地址，Host 已关闭时为零值
func (h *Host) Address() Address {
	raw, ok := h.raw()
	if !ok {
		return Address{}
	}
	defer runtime.KeepAlive(h)
	return raw.Address()
}

// TotalSentData 累计发送字节数，溢出时回绕
func (h *Host) TotalSentData() uint32 {
	return h.Stats().TotalSentData
}

// TotalSentPackets 累计发送 UDP 包数
func (h *Host) TotalSentPackets() uint32 {
	return h.Stats().TotalSentPackets
}

// TotalReceivedData 累计接收字节数
func (h *Host) TotalReceivedData() uint32 {
	return h.Stats().TotalReceivedData
}

// TotalReceivedPackets 累计接收 UDP 包数
func (h *Host) TotalReceivedPackets() uint32 {
	return h.Stats().TotalReceivedPackets
}

func (h *Host) ResetTotalSentData()        { h.reset(interfaces.RawHost.ResetTotalSentData) }
func (h *Host) ResetTotalSentPackets()     { h.reset(interfaces.RawHost.ResetTotalSentPackets) }
func (h *Host) ResetTotalReceivedData()    { h.reset(interfaces.RawHost.ResetTotalReceivedData) }
func (h *Host) ResetTotalReceivedPackets() { h.reset(interfaces.RawHost.ResetTotalReceivedPackets) }

func (h *Host) reset(fn func(interfaces.RawHost)) {
	raw, ok := h.raw()
	if !ok {
		return
	}
	defer runtime.KeepAlive(h)
	fn(raw)
}

// Stats 返回计数器快照，Host 已关闭时为零值
func (h *Host) Stats() HostStats {
	raw, ok := h.raw()
	if !ok {
		return HostStats{}
	}
	defer runtime.KeepAlive(h)
	return types.HostStats{
		PeerCount:            raw.PeerCount(),
		ConnectedPeers:       raw.ConnectedPeers(),
		ChannelLimit:         raw.ChannelLimit(),
		TotalSentData:        raw.TotalSentData(),
		TotalSentPackets:     raw.TotalSentPackets(),
		TotalReceivedData:    raw.TotalReceivedData(),
		TotalReceivedPackets: raw.TotalReceivedPackets(),
	}
}
