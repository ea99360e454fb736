package enet

import (
	"fmt"
	"runtime"

	"github.com/dep2p/go-enet/pkg/interfaces"
)

// Peer 一个连接端点，指向主机节点表中的槽位
//
// Peer 不拥有连接本身，但持有主机的引用，保证主机在 Peer 关闭前不会
// 被销毁。多个 Peer 值可以指向同一个槽位，用 Equal 比较。
type Peer struct {
	raw   interfaces.RawPeer
	host  *hostCore
	owner *owner
}

func newPeer(host *hostCore, raw interfaces.RawPeer) *Peer {
	p := &Peer{raw: raw, host: host, owner: host.guard.own()}
	runtime.AddCleanup(p, releaseOwner, p.owner)
	return p
}

// check 在句柄已关闭时 panic
//
// 调用方随后用 defer runtime.KeepAlive(p) 保证句柄在引擎调用期间不被回收。
func (p *Peer) check() {
	if !p.owner.live() {
		panic("enet: use of closed peer")
	}
}

// Close 释放 Peer 持有的主机引用，不影响连接
func (p *Peer) Close() {
	p.owner.release()
}

// Clone 返回指向同一槽位的新 Peer
func (p *Peer) Clone() *Peer {
	p.check()
	defer runtime.KeepAlive(p)
	return newPeer(p.host, p.raw)
}

// Equal 两个 Peer 是否指向同一槽位
func (p *Peer) Equal(other *Peer) bool {
	return other != nil && p.raw == other.raw
}

// State 当前连接状态
func (p *Peer) State() PeerState {
	p.check()
	defer runtime.KeepAlive(p)
	s := p.raw.State()
	if !s.IsValid() {
		panic(fmt.Sprintf("enet: engine reported invalid peer state %d", int(s)))
	}
	return s
}

// ============================================================================
//                              发送
// ============================================================================

// Send 在 channelID 上发送数据包
//
// 校验顺序：连接状态、通道号、数据包长度、投递标志。任一校验失败时
// 不会调用引擎创建数据包。
func (p *Peer) Send(channelID uint8, packet Packet) error {
	p.check()
	defer runtime.KeepAlive(p)
	if state := p.raw.State(); state != PeerStateConnected {
		return &PeerNotConnectedError{State: state}
	}
	if int(channelID) >= p.raw.ChannelCount() {
		return &NoChannelIDError{ChannelID: channelID}
	}
	if err := packet.validate(p.host.raw.MaximumPacketSize()); err != nil {
		return err
	}

	eng := p.host.engine
	raw, err := eng.PacketCreate(packet.data, packet.engineFlags())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPacketCreateMallocFailure, err)
	}
	if raw == nil {
		return ErrPacketCreateMallocFailure
	}
	if err := eng.PeerSend(p.raw, channelID, raw); err != nil {
		eng.PacketDestroy(raw)
		return fmt.Errorf("%w: %w", ErrSendFailure, err)
	}
	return nil
}

// ============================================================================
//                              断开
// ============================================================================

// Disconnect 请求优雅断开，data 随 Disconnect 事件送达对端
func (p *Peer) Disconnect(data uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerDisconnect(p.raw, data)
}

// DisconnectLater 排队数据全部发出后断开
func (p *Peer) DisconnectLater(data uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerDisconnectLater(p.raw, data)
}

// DisconnectNow 立即断开，不等待对端确认，本地不产生 Disconnect 事件
func (p *Peer) DisconnectNow(data uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerDisconnectNow(p.raw, data)
}

// Reset 本地强制断开，不通知对端
func (p *Peer) Reset() {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerReset(p.raw)
}

// ============================================================================
//                              保活
// ============================================================================

// Ping 立即发送一次 ping
func (p *Peer) Ping() {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerPing(p.raw)
}

// SetPingInterval 设置 ping 间隔（毫秒），0 表示默认值
func (p *Peer) SetPingInterval(ms uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerPingInterval(p.raw, ms)
}

// PingInterval ping 间隔（毫秒）
func (p *Peer) PingInterval() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.PingInterval()
}

// SetTimeout 设置超时参数，0 表示默认值
//
// limit 是未确认可靠包的计数上限；minimum 和 maximum 以毫秒计。
func (p *Peer) SetTimeout(limit, minimum, maximum uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	p.host.engine.PeerTimeout(p.raw, limit, minimum, maximum)
}

// Timeout 当前超时参数
func (p *Peer) Timeout() (limit, minimum, maximum uint32) {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.Timeout()
}

// ============================================================================
//                              统计
// ============================================================================

// RoundTripTime 平均往返时间（毫秒）
func (p *Peer) RoundTripTime() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.RoundTripTime()
}

// RoundTripTimeVariance 往返时间方差（毫秒）
func (p *Peer) RoundTripTimeVariance() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.RoundTripTimeVariance()
}

// PacketLoss 平均丢包率，按 PacketLossScale 缩放
func (p *Peer) PacketLoss() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.PacketLoss()
}

// PacketLossEpoch 当前丢包统计周期的起点
func (p *Peer) PacketLossEpoch() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.PacketLossEpoch()
}

// PacketsSent 当前周期内发送的可靠包数
func (p *Peer) PacketsSent() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.PacketsSent()
}

// PacketsLost 当前周期内丢失的可靠包数
func (p *Peer) PacketsLost() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.PacketsLost()
}

// IncomingPeerID 本地节点表中的下标
func (p *Peer) IncomingPeerID() uint16 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.IncomingPeerID()
}

// ConnectID 当前连接的随机标识
func (p *Peer) ConnectID() uint32 {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.ConnectID()
}

// Address 远端地址
func (p *Peer) Address() Address {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.Address()
}

// ChannelCount 协商后的通道数
func (p *Peer) ChannelCount() int {
	p.check()
	defer runtime.KeepAlive(p)
	return p.raw.ChannelCount()
}

// String 返回 "peer(<id> <addr> <state>)"
func (p *Peer) String() string {
	if !p.owner.live() {
		return "peer(closed)"
	}
	defer runtime.KeepAlive(p)
	return fmt.Sprintf("peer(%d %s %s)", p.raw.IncomingPeerID(), p.raw.Address(), p.raw.State())
}
