package quicnet

import "errors"

var (
	// ErrSocketClosed 套接字已关闭
	ErrSocketClosed = errors.New("quicnet: socket closed")

	// ErrFrameTooLarge 流上的帧超过长度上限
	ErrFrameTooLarge = errors.New("quicnet: frame too large")

	// ErrNotIPv4 只支持 IPv4 地址
	ErrNotIPv4 = errors.New("quicnet: address is not IPv4")
)
