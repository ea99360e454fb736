package mocks

import (
	"sync"
	"time"

	"github.com/dep2p/go-enet/pkg/interfaces"
	"github.com/dep2p/go-enet/pkg/types"
)

var (
	_ interfaces.Engine    = (*MockEngine)(nil)
	_ interfaces.RawHost   = (*MockRawHost)(nil)
	_ interfaces.RawPeer   = (*MockRawPeer)(nil)
	_ interfaces.RawPacket = (*MockRawPacket)(nil)
)

// ============================================================================
//                              MockEngine
// ============================================================================

// HostCreateCall HostCreate 调用记录
type HostCreateCall struct {
	Bind              *types.Address
	PeerCount         int
	ChannelLimit      int
	IncomingBandwidth uint32
	OutgoingBandwidth uint32
}

// HostConnectCall HostConnect 调用记录
type HostConnectCall struct {
	Host         interfaces.RawHost
	Addr         types.Address
	ChannelCount int
	Data         uint32
}

// PacketCreateCall PacketCreate 调用记录
type PacketCreateCall struct {
	Data  []byte
	Flags types.PacketFlags
}

// SendCall PeerSend/HostBroadcast 调用记录
type SendCall struct {
	Peer      interfaces.RawPeer
	Host      interfaces.RawHost
	ChannelID uint8
	Packet    interfaces.RawPacket
}

// PeerCall 节点命令调用记录
//
// Op 取值：disconnect、disconnect_now、disconnect_later、reset、ping、
// ping_interval、timeout。
type PeerCall struct {
	Op   string
	Peer interfaces.RawPeer
	Args []uint32
}

// MockEngine 模拟 interfaces.Engine
//
// 默认行为：HostCreate 返回 MockRawHost，HostConnect 返回 Connecting
// 状态的 MockRawPeer，HostService/HostCheckEvents 依次返回 Events 中的
// 记录，队列为空时返回 EventTypeNone。
type MockEngine struct {
	mu sync.Mutex

	VersionValue types.Version
	Events       []interfaces.EventRecord

	// 可覆盖的方法
	InitializeFunc      func() error
	HostCreateFunc      func(bind *types.Address, peerCount, channelLimit int, in, out uint32) (interfaces.RawHost, error)
	HostConnectFunc     func(host interfaces.RawHost, addr types.Address, channelCount int, data uint32) (interfaces.RawPeer, error)
	HostServiceFunc     func(host interfaces.RawHost, timeout time.Duration) (interfaces.EventRecord, error)
	HostCheckEventsFunc func(host interfaces.RawHost) (interfaces.EventRecord, error)
	PacketCreateFunc    func(data []byte, flags types.PacketFlags) (interfaces.RawPacket, error)
	PeerSendFunc        func(peer interfaces.RawPeer, channelID uint8, packet interfaces.RawPacket) error

	// 调用记录
	initializeCalls      int
	deinitializeCalls    int
	hostCreateCalls      []HostCreateCall
	hostDestroyCalls     []interfaces.RawHost
	hostConnectCalls     []HostConnectCall
	hostServiceCalls     []time.Duration
	hostCheckEventsCalls int
	hostFlushCalls       int
	broadcastCalls       []SendCall
	peerSendCalls        []SendCall
	peerCalls            []PeerCall
	packetCreateCalls    []PacketCreateCall
	packetDestroyCalls   []interfaces.RawPacket
}

// NewMockEngine 创建带有默认值的 MockEngine
func NewMockEngine() *MockEngine {
	return &MockEngine{VersionValue: types.NewVersion(1, 3, 18)}
}

// Initialize 启动引擎
func (m *MockEngine) Initialize() error {
	m.mu.Lock()
	m.initializeCalls++
	fn := m.InitializeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Deinitialize 关闭引擎
func (m *MockEngine) Deinitialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deinitializeCalls++
}

// LinkedVersion 返回 VersionValue
func (m *MockEngine) LinkedVersion() types.Version {
	return m.VersionValue
}

// HostCreate 创建主机
func (m *MockEngine) HostCreate(bind *types.Address, peerCount, channelLimit int, in, out uint32) (interfaces.RawHost, error) {
	m.mu.Lock()
	m.hostCreateCalls = append(m.hostCreateCalls, HostCreateCall{bind, peerCount, channelLimit, in, out})
	fn := m.HostCreateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(bind, peerCount, channelLimit, in, out)
	}
	h := NewMockRawHost(peerCount, channelLimit)
	if bind != nil {
		h.AddressValue = *bind
	}
	return h, nil
}

// HostDestroy 销毁主机
func (m *MockEngine) HostDestroy(host interfaces.RawHost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostDestroyCalls = append(m.hostDestroyCalls, host)
}

// HostConnect 发起连接
func (m *MockEngine) HostConnect(host interfaces.RawHost, addr types.Address, channelCount int, data uint32) (interfaces.RawPeer, error) {
	m.mu.Lock()
	m.hostConnectCalls = append(m.hostConnectCalls, HostConnectCall{host, addr, channelCount, data})
	fn := m.HostConnectFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(host, addr, channelCount, data)
	}
	return &MockRawPeer{
		StateValue:        types.PeerStateConnecting,
		AddressValue:      addr,
		ChannelCountValue: channelCount,
	}, nil
}

// HostService 返回下一个排队事件
func (m *MockEngine) HostService(host interfaces.RawHost, timeout time.Duration) (interfaces.EventRecord, error) {
	m.mu.Lock()
	m.hostServiceCalls = append(m.hostServiceCalls, timeout)
	fn := m.HostServiceFunc
	if fn == nil {
		defer m.mu.Unlock()
		return m.popEvent(), nil
	}
	m.mu.Unlock()
	return fn(host, timeout)
}

// HostCheckEvents 返回下一个排队事件
func (m *MockEngine) HostCheckEvents(host interfaces.RawHost) (interfaces.EventRecord, error) {
	m.mu.Lock()
	m.hostCheckEventsCalls++
	fn := m.HostCheckEventsFunc
	if fn == nil {
		defer m.mu.Unlock()
		return m.popEvent(), nil
	}
	m.mu.Unlock()
	return fn(host)
}

func (m *MockEngine) popEvent() interfaces.EventRecord {
	if len(m.Events) == 0 {
		return interfaces.EventRecord{}
	}
	rec := m.Events[0]
	m.Events = m.Events[1:]
	return rec
}

// HostFlush 发送排队数据
func (m *MockEngine) HostFlush(interfaces.RawHost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostFlushCalls++
}

// HostBroadcast 广播数据包
func (m *MockEngine) HostBroadcast(host interfaces.RawHost, channelID uint8, packet interfaces.RawPacket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastCalls = append(m.broadcastCalls, SendCall{Host: host, ChannelID: channelID, Packet: packet})
}

// PeerSend 发送数据包
func (m *MockEngine) PeerSend(peer interfaces.RawPeer, channelID uint8, packet interfaces.RawPacket) error {
	m.mu.Lock()
	m.peerSendCalls = append(m.peerSendCalls, SendCall{Peer: peer, ChannelID: channelID, Packet: packet})
	fn := m.PeerSendFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(peer, channelID, packet)
	}
	return nil
}

func (m *MockEngine) recordPeer(op string, peer interfaces.RawPeer, args ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peerCalls = append(m.peerCalls, PeerCall{Op: op, Peer: peer, Args: args})
}

// PeerDisconnect 记录调用
func (m *MockEngine) PeerDisconnect(peer interfaces.RawPeer, data uint32) {
	m.recordPeer("disconnect", peer, data)
}

// PeerDisconnectNow 记录调用
func (m *MockEngine) PeerDisconnectNow(peer interfaces.RawPeer, data uint32) {
	m.recordPeer("disconnect_now", peer, data)
}

// PeerDisconnectLater 记录调用
func (m *MockEngine) PeerDisconnectLater(peer interfaces.RawPeer, data uint32) {
	m.recordPeer("disconnect_later", peer, data)
}

// PeerReset 记录调用
func (m *MockEngine) PeerReset(peer interfaces.RawPeer) {
	m.recordPeer("reset", peer)
}

// PeerPing 记录调用
func (m *MockEngine) PeerPing(peer interfaces.RawPeer) {
	m.recordPeer("ping", peer)
}

// PeerPingInterval 记录调用
func (m *MockEngine) PeerPingInterval(peer interfaces.RawPeer, interval uint32) {
	m.recordPeer("ping_interval", peer, interval)
}

// PeerTimeout 记录调用
func (m *MockEngine) PeerTimeout(peer interfaces.RawPeer, limit, minimum, maximum uint32) {
	m.recordPeer("timeout", peer, limit, minimum, maximum)
}

// PacketCreate 创建数据包
func (m *MockEngine) PacketCreate(data []byte, flags types.PacketFlags) (interfaces.RawPacket, error) {
	m.mu.Lock()
	m.packetCreateCalls = append(m.packetCreateCalls, PacketCreateCall{Data: data, Flags: flags})
	fn := m.PacketCreateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(data, flags)
	}
	if flags&types.FlagNoAllocate == 0 {
		data = append([]byte(nil), data...)
	}
	return &MockRawPacket{DataValue: data, FlagsValue: flags}, nil
}

// PacketDestroy 记录调用
func (m *MockEngine) PacketDestroy(packet interfaces.RawPacket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packetDestroyCalls = append(m.packetDestroyCalls, packet)
}

// ────────────────────────────────────────────────────────────────────────────
// 调用记录访问器
// ────────────────────────────────────────────────────────────────────────────

// InitializeCalls Initialize 调用次数
func (m *MockEngine) InitializeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeCalls
}

// DeinitializeCalls Deinitialize 调用次数
func (m *MockEngine) DeinitializeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deinitializeCalls
}

// HostCreateCalls HostCreate 调用记录
func (m *MockEngine) HostCreateCalls() []HostCreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HostCreateCall(nil), m.hostCreateCalls...)
}

// HostDestroyCalls HostDestroy 调用记录
func (m *MockEngine) HostDestroyCalls() []interfaces.RawHost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.RawHost(nil), m.hostDestroyCalls...)
}

// HostConnectCalls HostConnect 调用记录
func (m *MockEngine) HostConnectCalls() []HostConnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HostConnectCall(nil), m.hostConnectCalls...)
}

// HostServiceCalls HostService 调用的 timeout 记录
func (m *MockEngine) HostServiceCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.hostServiceCalls...)
}

// HostCheckEventsCalls HostCheckEvents 调用次数
func (m *MockEngine) HostCheckEventsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostCheckEventsCalls
}

// HostFlushCalls HostFlush 调用次数
func (m *MockEngine) HostFlushCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostFlushCalls
}

// BroadcastCalls HostBroadcast 调用记录
func (m *MockEngine) BroadcastCalls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendCall(nil), m.broadcastCalls...)
}

// PeerSendCalls PeerSend 调用记录
func (m *MockEngine) PeerSendCalls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendCall(nil), m.peerSendCalls...)
}

// PeerCalls 节点命令调用记录
func (m *MockEngine) PeerCalls() []PeerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PeerCall(nil), m.peerCalls...)
}

// PacketCreateCalls PacketCreate 调用记录
func (m *MockEngine) PacketCreateCalls() []PacketCreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PacketCreateCall(nil), m.packetCreateCalls...)
}

// PacketDestroyCalls PacketDestroy 调用记录
func (m *MockEngine) PacketDestroyCalls() []interfaces.RawPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.RawPacket(nil), m.packetDestroyCalls...)
}

// PushEvent 追加一个排队事件
func (m *MockEngine) PushEvent(rec interfaces.EventRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, rec)
}

// ============================================================================
//                              MockRawHost
// ============================================================================

// MockRawHost 模拟 interfaces.RawHost
type MockRawHost struct {
	PeerCountValue         int
	ConnectedPeersValue    int
	ChannelLimitValue      int
	MaximumPacketSizeValue int
	AddressValue           types.Address

	SentData        uint32
	SentPackets     uint32
	ReceivedData    uint32
	ReceivedPackets uint32
}

// NewMockRawHost 创建带有默认值的 MockRawHost
func NewMockRawHost(peerCount, channelLimit int) *MockRawHost {
	if channelLimit <= 0 || channelLimit > types.MaxChannelCount {
		channelLimit = types.MaxChannelCount
	}
	return &MockRawHost{
		PeerCountValue:         peerCount,
		ChannelLimitValue:      channelLimit,
		MaximumPacketSizeValue: types.DefaultMaximumPacketSize,
		AddressValue:           types.AnyAddress(0),
	}
}

func (h *MockRawHost) PeerCount() int            { return h.PeerCountValue }
func (h *MockRawHost) ConnectedPeers() int       { return h.ConnectedPeersValue }
func (h *MockRawHost) ChannelLimit() int         { return h.ChannelLimitValue }
func (h *MockRawHost) MaximumPacketSize() int    { return h.MaximumPacketSizeValue }
func (h *MockRawHost) Address() types.Address    { return h.AddressValue }
func (h *MockRawHost) TotalSentData() uint32     { return h.SentData }
func (h *MockRawHost) TotalSentPackets() uint32  { return h.SentPackets }
func (h *MockRawHost) TotalReceivedData() uint32 { return h.ReceivedData }

func (h *MockRawHost) TotalReceivedPackets() uint32 { return h.ReceivedPackets }

func (h *MockRawHost) ResetTotalSentData()        { h.SentData = 0 }
func (h *MockRawHost) ResetTotalSentPackets()     { h.SentPackets = 0 }
func (h *MockRawHost) ResetTotalReceivedData()    { h.ReceivedData = 0 }
func (h *MockRawHost) ResetTotalReceivedPackets() { h.ReceivedPackets = 0 }

// ============================================================================
//                              MockRawPeer
// ============================================================================

// MockRawPeer 模拟 interfaces.RawPeer
type MockRawPeer struct {
	IncomingPeerIDValue uint16
	ConnectIDValue      uint32
	StateValue          types.PeerState
	AddressValue        types.Address
	ChannelCountValue   int

	PacketLossEpochValue       uint32
	PacketsSentValue           uint32
	PacketsLostValue           uint32
	PacketLossValue            uint32
	RoundTripTimeValue         uint32
	RoundTripTimeVarianceValue uint32

	PingIntervalValue uint32
	TimeoutLimit      uint32
	TimeoutMinimum    uint32
	TimeoutMaximum    uint32
}

// NewConnectedPeer 创建 Connected 状态的 MockRawPeer
func NewConnectedPeer(addr types.Address, channels int) *MockRawPeer {
	return &MockRawPeer{
		StateValue:        types.PeerStateConnected,
		AddressValue:      addr,
		ChannelCountValue: channels,
	}
}

func (p *MockRawPeer) IncomingPeerID() uint16        { return p.IncomingPeerIDValue }
func (p *MockRawPeer) ConnectID() uint32             { return p.ConnectIDValue }
func (p *MockRawPeer) State() types.PeerState        { return p.StateValue }
func (p *MockRawPeer) Address() types.Address        { return p.AddressValue }
func (p *MockRawPeer) ChannelCount() int             { return p.ChannelCountValue }
func (p *MockRawPeer) PacketLossEpoch() uint32       { return p.PacketLossEpochValue }
func (p *MockRawPeer) PacketsSent() uint32           { return p.PacketsSentValue }
func (p *MockRawPeer) PacketsLost() uint32           { return p.PacketsLostValue }
func (p *MockRawPeer) PacketLoss() uint32            { return p.PacketLossValue }
func (p *MockRawPeer) RoundTripTime() uint32         { return p.RoundTripTimeValue }
func (p *MockRawPeer) RoundTripTimeVariance() uint32 { return p.RoundTripTimeVarianceValue }
func (p *MockRawPeer) PingInterval() uint32          { return p.PingIntervalValue }

func (p *MockRawPeer) Timeout() (limit, minimum, maximum uint32) {
	return p.TimeoutLimit, p.TimeoutMinimum, p.TimeoutMaximum
}

// ============================================================================
//                              MockRawPacket
// ============================================================================

// MockRawPacket 模拟 interfaces.RawPacket
type MockRawPacket struct {
	DataValue  []byte
	FlagsValue types.PacketFlags
}

func (p *MockRawPacket) Data() []byte             { return p.DataValue }
func (p *MockRawPacket) Flags() types.PacketFlags { return p.FlagsValue }
