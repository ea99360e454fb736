package interfaces

import "github.com/dep2p/go-enet/pkg/types"

// ============================================================================
//                              Network 接口
// ============================================================================

// Datagram 收到的一帧数据
type Datagram struct {
	// From 发送方地址（回复时原样使用）
	From types.Address

	// Data 帧内容，归接收方所有
	Data []byte
}

// Socket 引擎使用的数据报套接字
//
// 每个引擎主机持有一个 Socket。reliable 为 true 的帧必须可靠、
// 按发送顺序到达同一远端；其余帧允许丢失和乱序。
type Socket interface {
	// LocalAddr 本地绑定地址
	LocalAddr() types.Address

	// Send 向远端发送一帧
	//
	// 发送是异步的：返回 nil 只代表帧已交给网络层。
	Send(to types.Address, frame []byte, reliable bool) error

	// Incoming 收到的帧，套接字关闭后通道被关闭
	Incoming() <-chan Datagram

	// MTU 单个不可靠帧的建议最大长度
	MTU() int

	// Close 关闭套接字
	Close() error
}

// Network 数据报网络
//
// 实现：
//   - internal/core/engine/quicnet - 基于 QUIC 的真实 UDP 网络
//   - internal/core/engine/memnet  - 进程内网络
type Network interface {
	// Open 打开套接字
	//
	// bind 为 nil 时绑定到临时端口（仅出站）。
	Open(bind *types.Address) (Socket, error)
}
