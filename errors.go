package enet

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-enet/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 初始化错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyInitialized 已存在存活的 Context
	ErrAlreadyInitialized = errors.New("enet: already initialized")

	// ErrEngineInit 引擎初始化失败
	ErrEngineInit = errors.New("enet: engine initialization failed")

	// ErrContextClosed Context 已关闭
	ErrContextClosed = errors.New("enet: context closed")

	// ────────────────────────────────────────────────────────────────────────
	// 主机错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrTooManyPeers 节点数超过上限
	ErrTooManyPeers = errors.New("enet: too many peers")

	// ErrTooManyChannels 通道数超过上限
	ErrTooManyChannels = errors.New("enet: too many channels")

	// ErrReturnedNull 引擎未能创建主机
	ErrReturnedNull = errors.New("enet: engine returned no host")

	// ErrHostClosed 主机已关闭
	ErrHostClosed = errors.New("enet: host closed")

	// ErrService 服务循环失败
	ErrService = errors.New("enet: service failed")

	// ErrDispatch 事件派发失败
	ErrDispatch = errors.New("enet: dispatch failed")

	// ────────────────────────────────────────────────────────────────────────
	// 连接错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoPeersAvailable 节点槽位已满
	ErrNoPeersAvailable = errors.New("enet: no peers available")

	// ErrConnectFailure 引擎未能发起连接
	ErrConnectFailure = errors.New("enet: connect failed")

	// ────────────────────────────────────────────────────────────────────────
	// 发送错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrPeerNotConnected 节点未连接
	ErrPeerNotConnected = errors.New("enet: peer not connected")

	// ErrPeerNoChannelID 通道号超出协商的通道数
	ErrPeerNoChannelID = errors.New("enet: no such channel")

	// ErrPacketCreateZeroLength 数据包为空
	ErrPacketCreateZeroLength = errors.New("enet: zero-length packet")

	// ErrPacketExceedsMaximumSize 数据包超过主机的最大数据包大小
	ErrPacketExceedsMaximumSize = errors.New("enet: packet exceeds maximum size")

	// ErrInvalidPacketFlags 投递标志无效
	ErrInvalidPacketFlags = errors.New("enet: invalid packet flags")

	// ErrPacketCreateMallocFailure 引擎未能创建数据包
	ErrPacketCreateMallocFailure = errors.New("enet: packet creation failed")

	// ErrSendFailure 引擎未能排队数据包
	ErrSendFailure = errors.New("enet: send failed")

	// ────────────────────────────────────────────────────────────────────────
	// 地址错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidAddress 地址无效
	ErrInvalidAddress = types.ErrInvalidAddress

	// ErrNoIPv4Address 主机名没有 IPv4 地址
	ErrNoIPv4Address = errors.New("enet: no IPv4 address")
)

// ============================================================================
//                              带参数的错误
// ============================================================================

// TooManyPeersError 请求的节点数超过 MaxPeers
type TooManyPeersError struct {
	Count uint32
}

func (e *TooManyPeersError) Error() string {
	return fmt.Sprintf("enet: too many peers: %d (max %d)", e.Count, MaxPeers)
}

func (e *TooManyPeersError) Unwrap() error {
	return ErrTooManyPeers
}

// TooManyChannelsError 请求的通道上限超过 MaxChannelCount
type TooManyChannelsError struct {
	Count uint32
}

func (e *TooManyChannelsError) Error() string {
	return fmt.Sprintf("enet: too many channels: %d (max %d)", e.Count, MaxChannelCount)
}

func (e *TooManyChannelsError) Unwrap() error {
	return ErrTooManyChannels
}

// PeerNotConnectedError 节点不在 Connected 状态
type PeerNotConnectedError struct {
	State PeerState
}

func (e *PeerNotConnectedError) Error() string {
	return fmt.Sprintf("enet: peer not connected: state %s", e.State)
}

func (e *PeerNotConnectedError) Unwrap() error {
	return ErrPeerNotConnected
}

// NoChannelIDError 通道号无效
type NoChannelIDError struct {
	ChannelID uint8
}

func (e *NoChannelIDError) Error() string {
	return fmt.Sprintf("enet: no such channel: %d", e.ChannelID)
}

func (e *NoChannelIDError) Unwrap() error {
	return ErrPeerNoChannelID
}

// PacketSizeError 数据包超过最大数据包大小
type PacketSizeError struct {
	Size    int
	Maximum int
}

func (e *PacketSizeError) Error() string {
	return fmt.Sprintf("enet: packet exceeds maximum size: %d > %d", e.Size, e.Maximum)
}

func (e *PacketSizeError) Unwrap() error {
	return ErrPacketExceedsMaximumSize
}
