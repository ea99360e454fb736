package interfaces

import (
	"time"

	"github.com/dep2p/go-enet/pkg/types"
)

// ============================================================================
//                              Engine 接口
// ============================================================================

// Engine 可靠 UDP 引擎的窄接口
//
// 引擎负责线路协议本身：可靠性、排序、分片、带宽节流和套接字 I/O。
// 所有以句柄为参数的方法都要求句柄来自同一个引擎实例。
type Engine interface {
	// Initialize 启动引擎的全局子系统
	Initialize() error

	// Deinitialize 关闭引擎的全局子系统
	Deinitialize()

	// LinkedVersion 返回引擎版本
	LinkedVersion() types.Version

	// HostCreate 创建主机
	//
	// bind 为 nil 表示仅出站（客户端）主机。
	// channelLimit 为 0 表示使用最大通道数；带宽为 0 表示不限制。
	HostCreate(bind *types.Address, peerCount, channelLimit int, incomingBandwidth, outgoingBandwidth uint32) (RawHost, error)

	// HostDestroy 销毁主机及其全部节点槽位
	HostDestroy(host RawHost)

	// HostConnect 向远端发起连接，返回处于 Connecting 状态的节点
	HostConnect(host RawHost, addr types.Address, channelCount int, data uint32) (RawPeer, error)

	// HostService 推进协议状态并返回下一个事件，最多等待 timeout
	HostService(host RawHost, timeout time.Duration) (EventRecord, error)

	// HostCheckEvents 只派发已排队的事件，不做任何网络 I/O
	HostCheckEvents(host RawHost) (EventRecord, error)

	// HostFlush 立即发送所有排队的数据
	HostFlush(host RawHost)

	// HostBroadcast 向所有已连接节点排队发送数据包
	HostBroadcast(host RawHost, channelID uint8, packet RawPacket)

	// PeerSend 向节点排队发送数据包
	//
	// 成功后数据包归引擎所有；失败时调用方仍负责销毁。
	PeerSend(peer RawPeer, channelID uint8, packet RawPacket) error

	// PeerDisconnect 请求优雅断开
	PeerDisconnect(peer RawPeer, data uint32)

	// PeerDisconnectNow 立即断开，不等待确认
	PeerDisconnectNow(peer RawPeer, data uint32)

	// PeerDisconnectLater 在排队数据发送完毕后断开
	PeerDisconnectLater(peer RawPeer, data uint32)

	// PeerReset 本地强制断开，不通知对端
	PeerReset(peer RawPeer)

	// PeerPing 立即发送一次 ping
	PeerPing(peer RawPeer)

	// PeerPingInterval 设置 ping 间隔（毫秒）
	PeerPingInterval(peer RawPeer, interval uint32)

	// PeerTimeout 设置超时参数（limit 次数，minimum/maximum 毫秒）
	PeerTimeout(peer RawPeer, limit, minimum, maximum uint32)

	// PacketCreate 创建数据包
	//
	// flags 含 FlagNoAllocate 时引擎直接引用 data，否则复制一份。
	PacketCreate(data []byte, flags types.PacketFlags) (RawPacket, error)

	// PacketDestroy 将数据包归还给引擎
	PacketDestroy(packet RawPacket)
}

// ============================================================================
//                              句柄
// ============================================================================

// RawHost 引擎主机句柄
//
// 只读访问器返回引擎维护的累加器快照。
type RawHost interface {
	// PeerCount 分配的节点槽位数
	PeerCount() int

	// ConnectedPeers 已连接节点数
	ConnectedPeers() int

	// ChannelLimit 入站连接的最大通道数
	ChannelLimit() int

	// MaximumPacketSize 允许的最大数据包大小
	MaximumPacketSize() int

	// Address 本地绑定地址
	Address() types.Address

	// TotalSentData 累计发送字节数（溢出回绕）
	TotalSentData() uint32
	// TotalSentPackets 累计发送 UDP 包数
	TotalSentPackets() uint32
	// TotalReceivedData 累计接收字节数
	TotalReceivedData() uint32
	// TotalReceivedPackets 累计接收 UDP 包数
	TotalReceivedPackets() uint32

	ResetTotalSentData()
	ResetTotalSentPackets()
	ResetTotalReceivedData()
	ResetTotalReceivedPackets()
}

// RawPeer 引擎节点句柄，指向主机节点表中的一个槽位
type RawPeer interface {
	// IncomingPeerID 本地节点表中的下标
	IncomingPeerID() uint16

	// ConnectID 当前连接的随机标识
	ConnectID() uint32

	// State 当前状态
	State() types.PeerState

	// Address 远端地址
	Address() types.Address

	// ChannelCount 协商后的通道数
	ChannelCount() int

	// PacketLossEpoch 当前丢包统计周期的起点（引擎毫秒时间）
	PacketLossEpoch() uint32
	// PacketsSent 当前周期内发送的可靠包数
	PacketsSent() uint32
	// PacketsLost 当前周期内丢失的可靠包数
	PacketsLost() uint32
	// PacketLoss 平均丢包率，按 types.PacketLossScale 缩放
	PacketLoss() uint32

	// RoundTripTime 平均往返时间（毫秒）
	RoundTripTime() uint32
	// RoundTripTimeVariance 往返时间方差（毫秒）
	RoundTripTimeVariance() uint32

	// PingInterval ping 间隔（毫秒）
	PingInterval() uint32
	// Timeout 超时参数 (limit, minimum, maximum)
	Timeout() (limit, minimum, maximum uint32)
}

// RawPacket 引擎数据包句柄
type RawPacket interface {
	// Data 数据视图，仅在数据包销毁前有效
	Data() []byte

	// Flags 投递标志
	Flags() types.PacketFlags
}

// ============================================================================
//                              EventRecord
// ============================================================================

// EventRecord 引擎原始事件记录
//
// Type 为 EventTypeNone 时其余字段无意义。
type EventRecord struct {
	Type      types.EventType
	Peer      RawPeer
	ChannelID uint8
	Data      uint32
	Packet    RawPacket
}
