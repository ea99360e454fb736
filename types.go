package enet

import (
	"github.com/dep2p/go-enet/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// Address 网络端点（IPv4 + 端口）
	Address = types.Address

	// PeerState 节点连接状态
	PeerState = types.PeerState

	// EventType 事件类型
	EventType = types.EventType

	// PacketFlags 数据包投递标志
	PacketFlags = types.PacketFlags

	// Version 引擎版本
	Version = types.Version

	// HostStats 主机计数器快照
	HostStats = types.HostStats
)

// 节点状态
const (
	PeerStateDisconnected            = types.PeerStateDisconnected
	PeerStateConnecting              = types.PeerStateConnecting
	PeerStateAcknowledgingConnect    = types.PeerStateAcknowledgingConnect
	PeerStateConnectionPending       = types.PeerStateConnectionPending
	PeerStateConnectionSucceeded     = types.PeerStateConnectionSucceeded
	PeerStateConnected               = types.PeerStateConnected
	PeerStateDisconnectLater         = types.PeerStateDisconnectLater
	PeerStateDisconnecting           = types.PeerStateDisconnecting
	PeerStateAcknowledgingDisconnect = types.PeerStateAcknowledgingDisconnect
	PeerStateZombie                  = types.PeerStateZombie
)

// 事件类型
const (
	EventConnect    = types.EventTypeConnect
	EventDisconnect = types.EventTypeDisconnect
	EventReceive    = types.EventTypeReceive
)

// 投递标志
const (
	FlagReliable           = types.FlagReliable
	FlagUnsequenced        = types.FlagUnsequenced
	FlagNoAllocate         = types.FlagNoAllocate
	FlagUnreliableFragment = types.FlagUnreliableFragment
)

// 协议上限
const (
	// MaxPeers 单个主机的最大节点数
	MaxPeers = types.MaxPeers

	// MaxChannelCount 最大通道数
	MaxChannelCount = types.MaxChannelCount

	// PacketLossScale Peer.PacketLoss 的缩放系数
	PacketLossScale = types.PacketLossScale
)
