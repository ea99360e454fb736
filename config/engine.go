package config

import (
	"errors"
	"time"
)

// 网络类型
const (
	// NetworkQUIC 基于 QUIC 的 UDP 网络
	NetworkQUIC = "quic"

	// NetworkMemory 进程内网络（测试和演示）
	NetworkMemory = "memory"
)

// EngineConfig 引擎协议配置
//
// 默认值与 ENet 1.3 一致：
//   - ping 间隔 500ms
//   - 超时：连续 32 次未应答，最短 5s，最长 30s
//   - 最大数据包 32 MiB
type EngineConfig struct {
	// Network 引擎使用的网络："quic" 或 "memory"
	Network string `json:"network"`

	// PingInterval 空闲连接的 ping 间隔
	PingInterval Duration `json:"ping_interval"`

	// TimeoutLimit 判定超时所需的连续未应答 ping 次数
	TimeoutLimit uint32 `json:"timeout_limit"`

	// TimeoutMinimum 最短超时时间
	TimeoutMinimum Duration `json:"timeout_minimum"`

	// TimeoutMaximum 最长超时时间，静默超过该值一定断开
	TimeoutMaximum Duration `json:"timeout_maximum"`

	// MaximumPacketSize 单个数据包的最大字节数
	MaximumPacketSize int `json:"maximum_packet_size"`

	// Compress 是否使用 s2 压缩数据包载荷
	Compress bool `json:"compress"`

	// CompressThreshold 载荷达到该长度才尝试压缩
	CompressThreshold int `json:"compress_threshold,omitempty"`
}

// DefaultEngineConfig 返回默认引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Network:           NetworkQUIC,
		PingInterval:      Duration(500 * time.Millisecond),
		TimeoutLimit:      32,
		TimeoutMinimum:    Duration(5 * time.Second),
		TimeoutMaximum:    Duration(30 * time.Second),
		MaximumPacketSize: 32 * 1024 * 1024,
		Compress:          false,
		CompressThreshold: 256,
	}
}

// Validate 验证引擎配置
func (c EngineConfig) Validate() error {
	switch c.Network {
	case NetworkQUIC, NetworkMemory:
	default:
		return errors.New("engine network must be \"quic\" or \"memory\"")
	}
	if c.PingInterval <= 0 {
		return errors.New("ping interval must be positive")
	}
	if c.TimeoutLimit == 0 {
		return errors.New("timeout limit must be positive")
	}
	if c.TimeoutMinimum <= 0 {
		return errors.New("timeout minimum must be positive")
	}
	if c.TimeoutMaximum < c.TimeoutMinimum {
		return errors.New("timeout maximum must not be less than timeout minimum")
	}
	if c.MaximumPacketSize <= 0 {
		return errors.New("maximum packet size must be positive")
	}
	if c.CompressThreshold < 0 {
		return errors.New("compress threshold must not be negative")
	}
	return nil
}

// WithNetwork 设置网络类型
func (c EngineConfig) WithNetwork(network string) EngineConfig {
	c.Network = network
	return c
}

// WithCompression 启用或禁用载荷压缩
func (c EngineConfig) WithCompression(enabled bool) EngineConfig {
	c.Compress = enabled
	return c
}
