package types

// 协议上限常量
//
// 所有引擎实现共享这些上限，门面层在调用引擎之前依据它们做参数校验。
const (
	// MaxPeers 单个主机可分配的最大节点数
	MaxPeers = 4096

	// MaxPeerID 可表示的最大节点 ID，同时作为"未知节点"的占位 ID
	MaxPeerID = 0xFFF

	// MinChannelCount 每个连接至少协商的通道数
	MinChannelCount = 1

	// MaxChannelCount 每个连接可协商的最大通道数
	MaxChannelCount = 255

	// DefaultMaximumPacketSize 默认的最大数据包大小（32 MiB）
	DefaultMaximumPacketSize = 32 * 1024 * 1024

	// PacketLossScale 丢包率的定点缩放系数
	//
	// Peer.PacketLoss() 返回值除以该系数即为丢包比例。
	PacketLossScale = 1 << 16
)
