package engine

import (
	"errors"
	"time"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/pkg/types"
)

// Config 引擎配置
type Config struct {
	// PingInterval 默认 ping 间隔
	PingInterval time.Duration

	// TimeoutLimit 连续未应答 ping 次数上限
	TimeoutLimit uint32

	// TimeoutMinimum 最短超时
	TimeoutMinimum time.Duration

	// TimeoutMaximum 最长超时
	TimeoutMaximum time.Duration

	// MaximumPacketSize 主机的最大数据包大小
	MaximumPacketSize int

	// Compress 启用 s2 载荷压缩
	Compress bool

	// CompressThreshold 压缩阈值
	CompressThreshold int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return FromConfig(config.DefaultEngineConfig())
}

// FromConfig 从全局配置转换
func FromConfig(c config.EngineConfig) Config {
	return Config{
		PingInterval:      c.PingInterval.Duration(),
		TimeoutLimit:      c.TimeoutLimit,
		TimeoutMinimum:    c.TimeoutMinimum.Duration(),
		TimeoutMaximum:    c.TimeoutMaximum.Duration(),
		MaximumPacketSize: c.MaximumPacketSize,
		Compress:          c.Compress,
		CompressThreshold: c.CompressThreshold,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.PingInterval <= 0 {
		return errors.New("ping interval must be positive")
	}
	if c.TimeoutLimit == 0 {
		return errors.New("timeout limit must be positive")
	}
	if c.TimeoutMinimum <= 0 || c.TimeoutMaximum < c.TimeoutMinimum {
		return errors.New("invalid timeout range")
	}
	if c.MaximumPacketSize <= 0 || c.MaximumPacketSize > types.DefaultMaximumPacketSize {
		return errors.New("maximum packet size out of range")
	}
	return nil
}

func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
