package config

import (
	"errors"
	"time"
)

// HostConfig 主机默认配置
//
// 供 cmd/enet 和 fx 模块创建主机时使用；直接调用 CreateHost 时以参数为准。
type HostConfig struct {
	// ListenAddr 服务端监听地址，格式 "ip:port"
	ListenAddr string `json:"listen_addr,omitempty"`

	// PeerCount 节点槽位数
	PeerCount uint32 `json:"peer_count"`

	// ChannelLimit 入站连接的最大通道数，0 表示引擎最大值
	ChannelLimit uint32 `json:"channel_limit"`

	// IncomingBandwidth 入站带宽（字节/秒），0 表示不限制
	IncomingBandwidth uint32 `json:"incoming_bandwidth"`

	// OutgoingBandwidth 出站带宽（字节/秒），0 表示不限制
	OutgoingBandwidth uint32 `json:"outgoing_bandwidth"`

	// ResolveCacheSize 主机名解析缓存条目数，0 表示禁用缓存
	ResolveCacheSize int `json:"resolve_cache_size"`

	// ResolveCacheTTL 主机名解析缓存有效期
	ResolveCacheTTL Duration `json:"resolve_cache_ttl"`
}

// DefaultHostConfig 返回默认主机配置
func DefaultHostConfig() HostConfig {
	return HostConfig{
		PeerCount:        32,
		ChannelLimit:     2,
		ResolveCacheSize: 128,
		ResolveCacheTTL:  Duration(5 * time.Minute),
	}
}

// Validate 验证主机配置
func (c HostConfig) Validate() error {
	if c.PeerCount == 0 {
		return errors.New("host peer count must be positive")
	}
	if c.PeerCount > 4096 {
		return errors.New("host peer count must not exceed 4096")
	}
	if c.ChannelLimit > 255 {
		return errors.New("host channel limit must not exceed 255")
	}
	if c.ResolveCacheSize < 0 {
		return errors.New("resolve cache size must not be negative")
	}
	if c.ResolveCacheSize > 0 && c.ResolveCacheTTL <= 0 {
		return errors.New("resolve cache ttl must be positive when caching is enabled")
	}
	return nil
}
