package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 与 Config.Validate() 相同，但允许 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 未知网络类型 -> 使用 quic
//   - 最长超时小于最短超时 -> 交换值
//   - 非正的队列长度或 MTU -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.Engine.Network != NetworkQUIC && c.Engine.Network != NetworkMemory {
		c.Engine.Network = NetworkQUIC
	}
	if c.Engine.TimeoutMaximum < c.Engine.TimeoutMinimum {
		c.Engine.TimeoutMinimum, c.Engine.TimeoutMaximum = c.Engine.TimeoutMaximum, c.Engine.TimeoutMinimum
	}

	defaults := DefaultQUICConfig()
	if c.QUIC.QueueSize <= 0 {
		c.QUIC.QueueSize = defaults.QueueSize
	}
	if c.QUIC.MTU <= 0 {
		c.QUIC.MTU = defaults.MTU
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed after fix: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，失败时 panic
//
// 仅用于初始化阶段的静态配置。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}
