package engine

import (
	"golang.org/x/time/rate"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

var _ interfaces.RawPeer = (*Peer)(nil)

const (
	// defaultRoundTripTime 新连接的初始往返时间（毫秒）
	defaultRoundTripTime = 500

	// packetLossInterval 丢包统计周期（毫秒）
	packetLossInterval = 10000
)

// channel 单个通道的序号状态
type channel struct {
	outgoingReliableSequence   uint32
	outgoingUnreliableSequence uint32
	incomingReliableSequence   uint32
	incomingUnreliableSequence uint32

	// pending 乱序到达的可靠帧
	pending map[uint32]*frame
}

// Peer 节点表中的一个槽位
//
// 所有字段由所属 Host 的锁保护。
type Peer struct {
	host *Host

	incomingPeerID uint16
	outgoingPeerID uint16
	connectID      uint32
	state          types.PeerState
	address        types.Address
	channels       []channel
	eventData      uint32

	// disconnectData DisconnectLater 排空队列后随 DISCONNECT 发送的数据
	disconnectData uint32

	// counted 是否计入 host.connectedPeers
	counted bool

	// 对端通告的带宽，用于限制本端发往对端的速率
	incomingBandwidth uint32
	outgoingBandwidth uint32
	limiter           *rate.Limiter

	lastReceiveTime uint32
	lastPingTime    uint32
	pingSequence    uint32
	pendingPings    map[uint32]uint32
	unansweredPings uint32

	pingInterval   uint32
	timeoutLimit   uint32
	timeoutMinimum uint32
	timeoutMaximum uint32

	roundTripTime         uint32
	roundTripTimeVariance uint32

	packetLossEpoch    uint32
	packetsSent        uint32
	packetsLost        uint32
	packetLoss         uint32
	packetLossVariance uint32

	outgoing []*frame
}

func newPeer(h *Host, id uint16) *Peer {
	p := &Peer{host: h, incomingPeerID: id}
	p.clear()
	return p
}

// clear 恢复槽位的初始值（不处理状态和事件）
func (p *Peer) clear() {
	cfg := p.host.engine.cfg

	p.outgoingPeerID = types.MaxPeerID
	p.connectID = 0
	p.address = types.Address{}
	p.channels = nil
	p.eventData = 0
	p.disconnectData = 0
	p.incomingBandwidth = 0
	p.outgoingBandwidth = 0
	p.limiter = nil

	p.lastReceiveTime = 0
	p.lastPingTime = 0
	p.pingSequence = 0
	p.pendingPings = nil
	p.unansweredPings = 0

	p.pingInterval = millis(cfg.PingInterval)
	p.timeoutLimit = cfg.TimeoutLimit
	p.timeoutMinimum = millis(cfg.TimeoutMinimum)
	p.timeoutMaximum = millis(cfg.TimeoutMaximum)

	p.roundTripTime = defaultRoundTripTime
	p.roundTripTimeVariance = 0

	p.packetLossEpoch = 0
	p.packetsSent = 0
	p.packetsLost = 0
	p.packetLoss = 0
	p.packetLossVariance = 0

	p.outgoing = nil
}

// ============================================================================
//                              RawPeer 访问器
// ============================================================================

// IncomingPeerID 本地节点表下标
func (p *Peer) IncomingPeerID() uint16 {
	return p.incomingPeerID
}

// ConnectID 当前连接标识
func (p *Peer) ConnectID() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.connectID
}

// State 当前状态
func (p *Peer) State() types.PeerState {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.state
}

// Address 远端地址
func (p *Peer) Address() types.Address {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.address
}

// ChannelCount 协商后的通道数
func (p *Peer) ChannelCount() int {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return len(p.channels)
}

// PacketLossEpoch 丢包统计周期起点
func (p *Peer) PacketLossEpoch() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.packetLossEpoch
}

// PacketsSent 本周期发送的可靠包数
func (p *Peer) PacketsSent() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.packetsSent
}

// PacketsLost 本周期丢失的可靠包数
func (p *Peer) PacketsLost() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.packetsLost
}

// PacketLoss 平均丢包率
func (p *Peer) PacketLoss() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.packetLoss
}

// RoundTripTime 平均往返时间
func (p *Peer) RoundTripTime() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.roundTripTime
}

// RoundTripTimeVariance 往返时间方差
func (p *Peer) RoundTripTimeVariance() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.roundTripTimeVariance
}

// PingInterval ping 间隔
func (p *Peer) PingInterval() uint32 {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.pingInterval
}

// Timeout 超时参数
func (p *Peer) Timeout() (limit, minimum, maximum uint32) {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.timeoutLimit, p.timeoutMinimum, p.timeoutMaximum
}

// ============================================================================
//                              内部操作（调用方持有 host.mu）
// ============================================================================

// queue 排队一帧，填充寻址字段
func (p *Peer) queue(f *frame) {
	f.PeerID = p.outgoingPeerID
	f.SenderPeerID = p.incomingPeerID
	f.ConnectID = p.connectID
	p.outgoing = append(p.outgoing, f)
}

func (p *Peer) setupChannels(count int) {
	if count < types.MinChannelCount {
		count = types.MinChannelCount
	}
	if count > types.MaxChannelCount {
		count = types.MaxChannelCount
	}
	p.channels = make([]channel, count)
}

// setRemoteBandwidth 记录对端带宽并据此限制发送速率
func (p *Peer) setRemoteBandwidth(incoming, outgoing uint32) {
	p.incomingBandwidth = incoming
	p.outgoingBandwidth = outgoing
	p.limiter = newLimiter(incoming)
}

func (p *Peer) ping(now uint32) {
	p.pingSequence++
	if p.pendingPings == nil {
		p.pendingPings = make(map[uint32]uint32)
	}
	p.pendingPings[p.pingSequence] = now
	p.lastPingTime = now
	p.queue(&frame{Command: cmdPing, Sequence: p.pingSequence, SentTime: now})
}

// updateRoundTripTime 按 ENet 的平滑算法更新往返时间
func (p *Peer) updateRoundTripTime(rtt uint32) {
	if rtt == 0 {
		rtt = 1
	}
	p.roundTripTimeVariance -= p.roundTripTimeVariance / 4
	if rtt >= p.roundTripTime {
		p.roundTripTime += (rtt - p.roundTripTime) / 8
		p.roundTripTimeVariance += (rtt - p.roundTripTime) / 4
	} else {
		p.roundTripTime -= (p.roundTripTime - rtt) / 8
		p.roundTripTimeVariance += (p.roundTripTime - rtt) / 4
	}
}

// expirePings 将超过重传超时仍未应答的 ping 记为丢失
func (p *Peer) expirePings(now uint32) {
	if len(p.pendingPings) == 0 {
		return
	}
	lostAfter := max(p.roundTripTime+4*p.roundTripTimeVariance, p.pingInterval)
	for seq, sent := range p.pendingPings {
		if now-sent >= lostAfter {
			delete(p.pendingPings, seq)
			p.packetsLost++
			p.unansweredPings++
		}
	}
}

// updatePacketLoss 每个统计周期结束时更新平均丢包率
func (p *Peer) updatePacketLoss(now uint32) {
	if p.packetLossEpoch == 0 {
		p.packetLossEpoch = now
		return
	}
	if now-p.packetLossEpoch < packetLossInterval || p.packetsSent == 0 {
		return
	}

	lost := min(p.packetsLost, p.packetsSent)
	packetLoss := uint32(uint64(lost) * types.PacketLossScale / uint64(p.packetsSent))

	p.packetLossVariance -= p.packetLossVariance / 4
	if packetLoss >= p.packetLoss {
		p.packetLoss += (packetLoss - p.packetLoss) / 8
		p.packetLossVariance += (packetLoss - p.packetLoss) / 4
	} else {
		p.packetLoss -= (p.packetLoss - packetLoss) / 8
		p.packetLossVariance += (p.packetLoss - packetLoss) / 4
	}

	p.packetLossEpoch = now
	p.packetsSent = 0
	p.packetsLost = 0
}

// timedOut 判断连接是否超时
//
// 已连接的节点需要静默超过最短超时且连续未应答的 ping 达到上限；
// 其余状态静默超过最短超时即超时。静默超过最长超时一定超时。
func (p *Peer) timedOut(now uint32) bool {
	silence := now - p.lastReceiveTime
	if silence >= p.timeoutMaximum {
		return true
	}
	if silence < p.timeoutMinimum {
		return false
	}
	switch p.state {
	case types.PeerStateConnected, types.PeerStateDisconnectLater:
		return p.unansweredPings >= p.timeoutLimit
	default:
		return true
	}
}

// deliverable 数据帧是否可以在当前状态下接收
func (p *Peer) deliverable() bool {
	switch p.state {
	case types.PeerStateConnectionSucceeded, types.PeerStateConnected, types.PeerStateDisconnectLater:
		return true
	default:
		return false
	}
}

func newLimiter(bandwidth uint32) *rate.Limiter {
	if bandwidth == 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bandwidth), int(bandwidth))
}
