// Package config 提供 go-enet 的统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义：
//   - engine.go - 引擎协议参数（ping、超时、最大包大小、压缩）
//   - quic.go   - QUIC 网络参数
//   - host.go   - 主机默认参数和地址解析缓存
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Engine.PingInterval = config.Duration(time.Second)
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
//
//	// 从文件加载
//	cfg, err := config.LoadFile("enet.json")
package config

// Config 是 go-enet 的完整配置结构
//
// 配置按照功能模块组织：
//   - Engine: 引擎协议参数
//   - QUIC: QUIC 网络参数
//   - Host: 主机默认参数
type Config struct {
	// Engine 引擎配置
	Engine EngineConfig `json:"engine"`

	// QUIC 网络配置
	QUIC QUICConfig `json:"quic"`

	// Host 主机默认配置
	Host HostConfig `json:"host"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，与 ENet 的默认参数一致。
func NewConfig() *Config {
	return &Config{
		Engine: DefaultEngineConfig(),
		QUIC:   DefaultQUICConfig(),
		Host:   DefaultHostConfig(),
	}
}

// Validate 验证配置的有效性
//
// 依次检查所有子配置，返回第一个错误。
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.QUIC.Validate(); err != nil {
		return err
	}
	if err := c.Host.Validate(); err != nil {
		return err
	}
	return nil
}
