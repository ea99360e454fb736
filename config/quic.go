package config

import (
	"errors"
	"time"
)

// QUICConfig QUIC 网络配置
//
// 每个引擎主机使用一个共享 UDP socket 上的 quic.Transport：
// 可靠帧走双向流，不可靠帧走 QUIC datagram。
type QUICConfig struct {
	// MaxIdleTimeout 最大空闲超时
	MaxIdleTimeout Duration `json:"max_idle_timeout"`

	// KeepAlivePeriod KeepAlive 周期
	KeepAlivePeriod Duration `json:"keep_alive_period"`

	// HandshakeTimeout 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// QueueSize 每个套接字的接收队列长度，以及每条链路发送队列中不可靠帧的上限
	//
	// 可靠帧不受该上限影响。
	QueueSize int `json:"queue_size"`

	// MTU 不可靠帧超过该长度时改走可靠流
	MTU int `json:"mtu"`
}

// DefaultQUICConfig 返回默认 QUIC 配置
func DefaultQUICConfig() QUICConfig {
	return QUICConfig{
		MaxIdleTimeout:   Duration(30 * time.Second),
		KeepAlivePeriod:  Duration(10 * time.Second),
		HandshakeTimeout: Duration(5 * time.Second),
		QueueSize:        1024,
		MTU:              1200,
	}
}

// Validate 验证 QUIC 配置
func (c QUICConfig) Validate() error {
	if c.MaxIdleTimeout <= 0 {
		return errors.New("quic max idle timeout must be positive")
	}
	if c.KeepAlivePeriod < 0 {
		return errors.New("quic keep alive period must not be negative")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("quic handshake timeout must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("quic queue size must be positive")
	}
	if c.MTU < 576 {
		return errors.New("quic mtu must be at least 576")
	}
	return nil
}
