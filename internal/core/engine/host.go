package engine

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

var _ interfaces.RawHost = (*Host)(nil)

const (
	// maxReceiveBatch 每轮最多处理的已到达帧数
	maxReceiveBatch = 256

	// idleWakeup 没有活动节点时 Service 的最长单次等待
	idleWakeup = time.Second
)

// pendingEvent 等待派发的事件
//
// packet 为 nil 表示状态事件（ConnectionSucceeded / Zombie），否则为接收事件。
// 接收事件按到达顺序派发，即使节点随后开始断开；重置节点会丢弃它们。
type pendingEvent struct {
	peer      *Peer
	channelID uint8
	packet    *Packet
}

// Host 引擎主机
//
// Host 的锁只在 Service 等待网络时释放，其余操作都在锁内完成。
type Host struct {
	engine *Engine
	socket interfaces.Socket

	mu     sync.Mutex
	closed bool

	peers             []*Peer
	channelLimit      int
	maximumPacketSize int
	incomingBandwidth uint32
	outgoingBandwidth uint32
	limiter           *rate.Limiter
	connectedPeers    int

	events []pendingEvent

	totalSentData        uint32
	totalSentPackets     uint32
	totalReceivedData    uint32
	totalReceivedPackets uint32
}

func newHost(e *Engine, socket interfaces.Socket, peerCount, channelLimit int, incoming, outgoing uint32) *Host {
	h := &Host{
		engine:            e,
		socket:            socket,
		channelLimit:      channelLimit,
		maximumPacketSize: e.cfg.MaximumPacketSize,
		incomingBandwidth: incoming,
		outgoingBandwidth: outgoing,
		limiter:           newLimiter(outgoing),
	}
	h.peers = make([]*Peer, peerCount)
	for i := range h.peers {
		h.peers[i] = newPeer(h, uint16(i))
	}
	return h
}

// ============================================================================
//                              RawHost 访问器
// ============================================================================

// PeerCount 节点槽位数
func (h *Host) PeerCount() int {
	return len(h.peers)
}

// ConnectedPeers 已连接节点数
func (h *Host) ConnectedPeers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connectedPeers
}

// ChannelLimit 入站连接的最大通道数
func (h *Host) ChannelLimit() int {
	return h.channelLimit
}

// MaximumPacketSize 最大数据包大小
func (h *Host) MaximumPacketSize() int {
	return h.maximumPacketSize
}

// Address 本地绑定地址
func (h *Host) Address() types.Address {
	return h.socket.LocalAddr()
}

// TotalSentData 累计发送字节数
func (h *Host) TotalSentData() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalSentData
}

// TotalSentPackets 累计发送帧数
func (h *Host) TotalSentPackets() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalSentPackets
}

// TotalReceivedData 累计接收字节数
func (h *Host) TotalReceivedData() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalReceivedData
}

// TotalReceivedPackets 累计接收帧数
func (h *Host) TotalReceivedPackets() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalReceivedPackets
}

// ResetTotalSentData 清零发送字节数
func (h *Host) ResetTotalSentData() {
	h.mu.Lock()
	h.totalSentData = 0
	h.mu.Unlock()
}

// ResetTotalSentPackets 清零发送帧数
func (h *Host) ResetTotalSentPackets() {
	h.mu.Lock()
	h.totalSentPackets = 0
	h.mu.Unlock()
}

// ResetTotalReceivedData 清零接收字节数
func (h *Host) ResetTotalReceivedData() {
	h.mu.Lock()
	h.totalReceivedData = 0
	h.mu.Unlock()
}

// ResetTotalReceivedPackets 清零接收帧数
func (h *Host) ResetTotalReceivedPackets() {
	h.mu.Lock()
	h.totalReceivedPackets = 0
	h.mu.Unlock()
}

// ============================================================================
//                              Service 循环
// ============================================================================

// service 推进协议并返回下一个事件
//
// 顺序：先派发已排队的事件；然后循环执行超时检查、发送、接收，
// 接收产生事件时立即返回（不再发送），因此握手发起方需要在
// Connect 事件之后再 Flush 或 Service 一次才能把最终确认发出。
func (h *Host) service(timeout time.Duration) (interfaces.EventRecord, error) {
	clk := h.engine.clock
	deadline := clk.Now().Add(timeout)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return interfaces.EventRecord{}, ErrHostClosed
	}
	if ev, ok := h.dispatch(); ok {
		h.mu.Unlock()
		return ev, nil
	}

	for {
		now := h.engine.now()
		h.checkTimeouts(now)
		if ev, ok := h.dispatch(); ok {
			h.mu.Unlock()
			return ev, nil
		}

		h.flush()
		if err := h.receive(); err != nil {
			h.mu.Unlock()
			return interfaces.EventRecord{}, err
		}
		if ev, ok := h.dispatch(); ok {
			h.mu.Unlock()
			return ev, nil
		}
		h.flush()
		if ev, ok := h.dispatch(); ok {
			h.mu.Unlock()
			return ev, nil
		}

		remaining := deadline.Sub(clk.Now())
		if remaining <= 0 {
			h.mu.Unlock()
			return interfaces.EventRecord{}, nil
		}
		wait := min(remaining, h.wakeupInterval())
		incoming := h.socket.Incoming()
		h.mu.Unlock()

		timer := clk.Timer(wait)
		select {
		case d, ok := <-incoming:
			timer.Stop()
			h.mu.Lock()
			if h.closed {
				h.mu.Unlock()
				return interfaces.EventRecord{}, ErrHostClosed
			}
			if !ok {
				h.mu.Unlock()
				return interfaces.EventRecord{}, ErrSocketClosed
			}
			h.handleDatagram(d)
		case <-timer.C:
			h.mu.Lock()
			if h.closed {
				h.mu.Unlock()
				return interfaces.EventRecord{}, ErrHostClosed
			}
		}
	}
}

// checkEvents 只派发已排队的事件
func (h *Host) checkEvents() (interfaces.EventRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return interfaces.EventRecord{}, ErrHostClosed
	}
	ev, _ := h.dispatch()
	return ev, nil
}

// wakeupInterval 下一次需要处理定时器的最长间隔
func (h *Host) wakeupInterval() time.Duration {
	wait := idleWakeup
	for _, p := range h.peers {
		if p.state == types.PeerStateDisconnected || p.state == types.PeerStateZombie {
			continue
		}
		if d := time.Duration(p.pingInterval) * time.Millisecond; d < wait {
			wait = d
		}
	}
	return wait
}

// receive 非阻塞地处理已到达的帧
func (h *Host) receive() error {
	incoming := h.socket.Incoming()
	for i := 0; i < maxReceiveBatch; i++ {
		select {
		case d, ok := <-incoming:
			if !ok {
				return ErrSocketClosed
			}
			h.handleDatagram(d)
		default:
			return nil
		}
	}
	return nil
}

// checkTimeouts 处理 ping、丢包统计和超时
func (h *Host) checkTimeouts(now uint32) {
	for _, p := range h.peers {
		switch p.state {
		case types.PeerStateDisconnected, types.PeerStateZombie:
			continue
		case types.PeerStateConnected, types.PeerStateDisconnectLater, types.PeerStateDisconnecting:
			p.expirePings(now)
			if p.state == types.PeerStateConnected && now-p.lastPingTime >= p.pingInterval {
				p.ping(now)
			}
			p.updatePacketLoss(now)
		}

		if p.timedOut(now) {
			logger.Debug("连接超时",
				"peer", p.incomingPeerID,
				"addr", p.address,
				"state", p.state,
				"unanswered", p.unansweredPings)
			h.notifyDisconnect(p)
		}
	}
}

// ============================================================================
//                              事件派发
// ============================================================================

// dispatchState 切换状态并排队状态事件
func (h *Host) dispatchState(p *Peer, state types.PeerState) {
	h.changeState(p, state)
	h.events = append(h.events, pendingEvent{peer: p})
}

// changeState 切换状态并维护已连接计数
func (h *Host) changeState(p *Peer, state types.PeerState) {
	if state == types.PeerStateConnected || state == types.PeerStateDisconnectLater {
		if !p.counted {
			p.counted = true
			h.connectedPeers++
		}
	} else if p.counted {
		p.counted = false
		h.connectedPeers--
	}
	p.state = state
}

// dispatch 取出下一个可派发的事件
func (h *Host) dispatch() (interfaces.EventRecord, bool) {
	for len(h.events) > 0 {
		ev := h.events[0]
		h.events[0] = pendingEvent{}
		h.events = h.events[1:]
		p := ev.peer

		if ev.packet != nil {
			return interfaces.EventRecord{
				Type:      types.EventTypeReceive,
				Peer:      p,
				ChannelID: ev.channelID,
				Packet:    ev.packet,
			}, true
		}

		switch p.state {
		case types.PeerStateConnectionSucceeded:
			h.changeState(p, types.PeerStateConnected)
			return interfaces.EventRecord{
				Type: types.EventTypeConnect,
				Peer: p,
				Data: p.eventData,
			}, true
		case types.PeerStateZombie:
			data := p.eventData
			h.resetPeer(p)
			return interfaces.EventRecord{
				Type: types.EventTypeDisconnect,
				Peer: p,
				Data: data,
			}, true
		}
	}
	return interfaces.EventRecord{}, false
}

// removeEvents 丢弃节点尚未派发的事件
func (h *Host) removeEvents(p *Peer) {
	kept := h.events[:0]
	for _, ev := range h.events {
		if ev.peer == p {
			if ev.packet != nil {
				ev.packet.destroy()
			}
			continue
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(h.events); i++ {
		h.events[i] = pendingEvent{}
	}
	h.events = kept
}

// ============================================================================
//                              节点生命周期
// ============================================================================

func (h *Host) freePeer() *Peer {
	for _, p := range h.peers {
		if p.state == types.PeerStateDisconnected {
			return p
		}
	}
	return nil
}

// resetPeer 本地强制断开，不通知对端
func (h *Host) resetPeer(p *Peer) {
	h.changeState(p, types.PeerStateDisconnected)
	h.removeEvents(p)
	p.clear()
}

// notifyDisconnect 连接异常终止
//
// 响应方握手未完成时静默回收槽位，其余情况派发 Disconnect 事件。
func (h *Host) notifyDisconnect(p *Peer) {
	if p.state != types.PeerStateConnecting && p.state < types.PeerStateConnectionSucceeded {
		h.resetPeer(p)
		return
	}
	p.outgoing = nil
	p.eventData = 0
	h.dispatchState(p, types.PeerStateZombie)
}

func (h *Host) connect(addr types.Address, channelCount int, data uint32) (*Peer, error) {
	if !addr.IsValid() || addr.IsUnspecified() {
		return nil, ErrInvalidAddress
	}
	p := h.freePeer()
	if p == nil {
		return nil, ErrNoFreePeer
	}

	now := h.engine.now()
	p.setupChannels(channelCount)
	p.connectID = h.engine.newConnectID()
	p.address = addr
	p.lastReceiveTime = now
	p.lastPingTime = now
	h.changeState(p, types.PeerStateConnecting)
	p.queue(&frame{
		Command:           cmdConnect,
		ChannelCount:      uint8(len(p.channels)),
		Data:              data,
		IncomingBandwidth: h.incomingBandwidth,
		OutgoingBandwidth: h.outgoingBandwidth,
	})

	logger.Debug("发起连接", "peer", p.incomingPeerID, "addr", addr, "channels", len(p.channels))
	return p, nil
}

func (h *Host) disconnect(p *Peer, data uint32) {
	switch p.state {
	case types.PeerStateDisconnecting, types.PeerStateDisconnected,
		types.PeerStateAcknowledgingDisconnect, types.PeerStateZombie:
		return
	}

	p.outgoing = nil
	f := &frame{Command: cmdDisconnect, Data: data}
	if p.state == types.PeerStateConnected || p.state == types.PeerStateDisconnectLater {
		f.Flags = types.FlagReliable
		p.queue(f)
		h.changeState(p, types.PeerStateDisconnecting)
		return
	}

	// 握手尚未完成：通知对端后立即回收
	p.queue(f)
	h.flushPeer(p)
	h.resetPeer(p)
}

func (h *Host) disconnectNow(p *Peer, data uint32) {
	if p.state == types.PeerStateDisconnected {
		return
	}
	if p.state != types.PeerStateZombie && p.state != types.PeerStateDisconnecting {
		p.outgoing = nil
		p.queue(&frame{Command: cmdDisconnect, Data: data})
		h.flushPeer(p)
	}
	h.resetPeer(p)
}

func (h *Host) disconnectLater(p *Peer, data uint32) {
	if (p.state == types.PeerStateConnected || p.state == types.PeerStateDisconnectLater) && len(p.outgoing) > 0 {
		h.changeState(p, types.PeerStateDisconnectLater)
		p.disconnectData = data
		return
	}
	h.disconnect(p, data)
}

// ============================================================================
//                              发送
// ============================================================================

// send 将数据包编码为帧并排队
func (h *Host) send(p *Peer, channelID uint8, pkt *Packet) error {
	if p.state != types.PeerStateConnected {
		return ErrPeerNotConnected
	}
	if int(channelID) >= len(p.channels) {
		return ErrInvalidChannel
	}
	if len(pkt.data) > h.maximumPacketSize {
		return ErrPacketTooLarge
	}

	ch := &p.channels[channelID]
	f := &frame{
		ChannelID: channelID,
		Flags:     pkt.flags & (types.FlagReliable | types.FlagUnsequenced | types.FlagUnreliableFragment),
		Payload:   append([]byte(nil), pkt.data...),
	}

	reliable := pkt.flags.IsReliable()
	if !reliable && len(f.Payload) > h.socket.MTU() && !pkt.flags.Has(types.FlagUnreliableFragment) {
		// 超过 MTU 又不允许不可靠分片的数据包按可靠方式发送
		reliable = true
	}

	switch {
	case reliable:
		ch.outgoingReliableSequence++
		f.Command = cmdSendReliable
		f.Sequence = ch.outgoingReliableSequence
	case pkt.flags.IsUnsequenced():
		f.Command = cmdSendUnsequenced
	default:
		ch.outgoingUnreliableSequence++
		f.Command = cmdSendUnreliable
		f.Sequence = ch.outgoingUnreliableSequence
	}

	if h.engine.cfg.Compress {
		f.compressPayload(h.engine.cfg.CompressThreshold)
	}
	p.queue(f)
	pkt.markSent()
	return nil
}

func (h *Host) broadcast(channelID uint8, pkt *Packet) {
	for _, p := range h.peers {
		if p.state != types.PeerStateConnected {
			continue
		}
		if err := h.send(p, channelID, pkt); err != nil {
			logger.Debug("广播跳过节点", "peer", p.incomingPeerID, "error", err)
		}
	}
}

// flush 发送所有节点排队的帧
func (h *Host) flush() {
	for _, p := range h.peers {
		if len(p.outgoing) == 0 && p.state != types.PeerStateDisconnectLater {
			continue
		}
		h.flushPeer(p)
		if p.state == types.PeerStateDisconnectLater && len(p.outgoing) == 0 {
			h.disconnect(p, p.disconnectData)
			h.flushPeer(p)
		}
	}
}

// flushPeer 按带宽限制发送节点排队的帧
func (h *Host) flushPeer(p *Peer) {
	now := h.engine.clock.Now()
	for len(p.outgoing) > 0 {
		f := p.outgoing[0]
		b := f.marshal()
		if isDataCommand(f.Command) && !h.allowSend(p, len(b), now) {
			return
		}

		if err := h.socket.Send(p.address, b, f.reliable()); err != nil {
			logger.Debug("发送帧失败", "addr", p.address, "command", f.Command, "error", err)
		}
		h.totalSentData += uint32(len(b))
		h.totalSentPackets++
		p.outgoing[0] = nil
		p.outgoing = p.outgoing[1:]

		switch f.Command {
		case cmdSendReliable, cmdPing:
			p.packetsSent++
		case cmdVerifyConnect:
			if p.state == types.PeerStateAcknowledgingConnect {
				h.changeState(p, types.PeerStateConnectionPending)
			}
		case cmdAcknowledgeDisconnect:
			if p.state == types.PeerStateAcknowledgingDisconnect {
				h.dispatchState(p, types.PeerStateZombie)
			}
		}
	}
	p.outgoing = nil
}

// allowSend 检查主机和节点的带宽限制，两者都允许时才消耗令牌
func (h *Host) allowSend(p *Peer, n int, now time.Time) bool {
	limiters := [2]*rate.Limiter{h.limiter, p.limiter}
	for _, l := range limiters {
		if l != nil && l.TokensAt(now) < float64(min(n, l.Burst())) {
			return false
		}
	}
	for _, l := range limiters {
		if l != nil {
			l.AllowN(now, min(n, l.Burst()))
		}
	}
	return true
}

func isDataCommand(c command) bool {
	return c == cmdSendReliable || c == cmdSendUnreliable || c == cmdSendUnsequenced
}

// ============================================================================
//                              接收
// ============================================================================

// handleDatagram 处理一帧
func (h *Host) handleDatagram(d interfaces.Datagram) {
	h.totalReceivedData += uint32(len(d.Data))
	h.totalReceivedPackets++

	f, err := unmarshalFrame(d.Data)
	if err != nil {
		logger.Debug("丢弃无效帧", "from", d.From, "error", err)
		return
	}

	if f.Command == cmdConnect {
		h.handleConnect(d.From, f)
		return
	}

	if int(f.PeerID) >= len(h.peers) {
		return
	}
	p := h.peers[f.PeerID]
	if p.state == types.PeerStateDisconnected || p.state == types.PeerStateZombie {
		return
	}
	if p.address != d.From || p.connectID != f.ConnectID {
		return
	}
	now := h.engine.now()
	p.lastReceiveTime = now

	switch f.Command {
	case cmdVerifyConnect:
		h.handleVerifyConnect(p, f)
	case cmdAcknowledgeConnect:
		if p.state == types.PeerStateConnectionPending || p.state == types.PeerStateAcknowledgingConnect {
			h.dispatchState(p, types.PeerStateConnectionSucceeded)
		}
	case cmdDisconnect:
		h.handleDisconnect(p, f)
	case cmdAcknowledgeDisconnect:
		if p.state == types.PeerStateDisconnecting {
			// 本端发起的断开，事件不携带用户数据
			p.eventData = 0
			h.dispatchState(p, types.PeerStateZombie)
		}
	case cmdPing:
		p.queue(&frame{Command: cmdPong, Sequence: f.Sequence, SentTime: f.SentTime})
	case cmdPong:
		if _, ok := p.pendingPings[f.Sequence]; ok {
			delete(p.pendingPings, f.Sequence)
			p.updateRoundTripTime(now - f.SentTime)
			p.unansweredPings = 0
		}
	case cmdSendReliable, cmdSendUnreliable, cmdSendUnsequenced:
		h.handleSend(p, f)
	}
}

func (h *Host) handleConnect(from types.Address, f *frame) {
	if f.ChannelCount < types.MinChannelCount {
		return
	}
	for _, p := range h.peers {
		if p.state != types.PeerStateDisconnected && p.address == from && p.connectID == f.ConnectID {
			// 重复的连接请求
			return
		}
	}
	p := h.freePeer()
	if p == nil {
		logger.Debug("节点槽位已满，忽略连接请求", "from", from)
		return
	}

	now := h.engine.now()
	p.setupChannels(min(int(f.ChannelCount), h.channelLimit))
	p.connectID = f.ConnectID
	p.address = from
	p.outgoingPeerID = f.SenderPeerID
	p.eventData = f.Data
	p.lastReceiveTime = now
	p.lastPingTime = now
	p.setRemoteBandwidth(f.IncomingBandwidth, f.OutgoingBandwidth)
	h.changeState(p, types.PeerStateAcknowledgingConnect)
	p.queue(&frame{
		Command:           cmdVerifyConnect,
		ChannelCount:      uint8(len(p.channels)),
		IncomingBandwidth: h.incomingBandwidth,
		OutgoingBandwidth: h.outgoingBandwidth,
	})

	logger.Debug("收到连接请求", "peer", p.incomingPeerID, "from", from, "channels", len(p.channels))
}

func (h *Host) handleVerifyConnect(p *Peer, f *frame) {
	if p.state != types.PeerStateConnecting {
		return
	}
	if f.ChannelCount < types.MinChannelCount || int(f.ChannelCount) > len(p.channels) {
		logger.Debug("通道数不匹配", "peer", p.incomingPeerID, "channels", f.ChannelCount)
		h.notifyDisconnect(p)
		return
	}
	p.channels = p.channels[:f.ChannelCount]
	p.outgoingPeerID = f.SenderPeerID
	p.setRemoteBandwidth(f.IncomingBandwidth, f.OutgoingBandwidth)
	p.queue(&frame{Command: cmdAcknowledgeConnect})
	h.dispatchState(p, types.PeerStateConnectionSucceeded)
}

func (h *Host) handleDisconnect(p *Peer, f *frame) {
	if p.state == types.PeerStateAcknowledgingDisconnect {
		return
	}

	p.outgoing = nil
	p.eventData = f.Data
	switch {
	case p.state == types.PeerStateConnectionSucceeded ||
		p.state == types.PeerStateDisconnecting ||
		p.state == types.PeerStateConnecting:
		h.dispatchState(p, types.PeerStateZombie)
	case p.state != types.PeerStateConnected && p.state != types.PeerStateDisconnectLater:
		h.resetPeer(p)
	case f.reliable():
		h.changeState(p, types.PeerStateAcknowledgingDisconnect)
		p.queue(&frame{Command: cmdAcknowledgeDisconnect})
	default:
		h.dispatchState(p, types.PeerStateZombie)
	}
}

func (h *Host) handleSend(p *Peer, f *frame) {
	if !p.deliverable() || int(f.ChannelID) >= len(p.channels) {
		return
	}
	if err := f.decompressPayload(h.maximumPacketSize); err != nil {
		logger.Debug("丢弃无法解压的数据", "peer", p.incomingPeerID, "error", err)
		return
	}
	if len(f.Payload) > h.maximumPacketSize {
		return
	}

	ch := &p.channels[f.ChannelID]
	switch f.Command {
	case cmdSendReliable:
		switch {
		case f.Sequence == ch.incomingReliableSequence+1:
			h.deliver(p, f)
			ch.incomingReliableSequence++
			for {
				next, ok := ch.pending[ch.incomingReliableSequence+1]
				if !ok {
					break
				}
				delete(ch.pending, ch.incomingReliableSequence+1)
				h.deliver(p, next)
				ch.incomingReliableSequence++
			}
		case f.Sequence > ch.incomingReliableSequence:
			if ch.pending == nil {
				ch.pending = make(map[uint32]*frame)
			}
			ch.pending[f.Sequence] = f
		}
	case cmdSendUnreliable:
		if f.Sequence <= ch.incomingUnreliableSequence {
			return
		}
		ch.incomingUnreliableSequence = f.Sequence
		h.deliver(p, f)
	case cmdSendUnsequenced:
		h.deliver(p, f)
	}
}

func (h *Host) deliver(p *Peer, f *frame) {
	h.events = append(h.events, pendingEvent{
		peer:      p,
		channelID: f.ChannelID,
		packet:    &Packet{data: f.Payload, flags: f.Flags},
	})
}

// ============================================================================
//                              销毁
// ============================================================================

// destroy 断开所有节点并关闭套接字
func (h *Host) destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for _, p := range h.peers {
		if p.state != types.PeerStateDisconnected {
			h.disconnectNow(p, 0)
		}
	}
	h.closed = true
	h.events = nil
	return h.socket.Close()
}
