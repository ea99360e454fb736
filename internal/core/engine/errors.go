package engine

import "errors"

var (
	// ErrNotInitialized 引擎未初始化
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrAlreadyInitialized 引擎已初始化
	ErrAlreadyInitialized = errors.New("engine already initialized")

	// ErrInvalidPeerCount 节点数为零或超过上限
	ErrInvalidPeerCount = errors.New("invalid peer count")

	// ErrHostClosed 主机已销毁
	ErrHostClosed = errors.New("host closed")

	// ErrNoFreePeer 没有空闲的节点槽位
	ErrNoFreePeer = errors.New("no free peer slot")

	// ErrInvalidAddress 远端地址无效
	ErrInvalidAddress = errors.New("invalid remote address")

	// ErrPeerNotConnected 节点未连接
	ErrPeerNotConnected = errors.New("peer not connected")

	// ErrInvalidChannel 通道号超出协商范围
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrPacketTooLarge 数据包超过最大长度
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrPacketDestroyed 数据包已销毁
	ErrPacketDestroyed = errors.New("packet destroyed")

	// ErrSocketClosed 套接字已关闭
	ErrSocketClosed = errors.New("socket closed")

	// ErrMalformedFrame 帧格式错误
	ErrMalformedFrame = errors.New("malformed frame")
)
