// Package types 定义 go-enet 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 go-enet 内部包。
// 所有类型都是纯值类型，在门面层（enet 包）、引擎契约（pkg/interfaces）
// 和引擎实现（internal/core/engine）之间传递。
//
// # 文件组织
//
//   - address.go  - Address 网络端点（IPv4 主机 + 端口）
//   - enums.go    - PeerState 节点状态机, EventType 事件类型
//   - packet.go   - PacketFlags 数据包投递标志
//   - version.go  - Version 引擎版本编码
//   - limits.go   - 协议上限常量（最大节点数、最大通道数等）
//
// # 位布局
//
// PacketFlags 保持与引擎相同的位位置，便于直接透传：
//
//	RELIABLE            = 1 << 0
//	UNSEQUENCED         = 1 << 1
//	NO_ALLOCATE         = 1 << 2
//	UNRELIABLE_FRAGMENT = 1 << 3
//	SENT                = 1 << 8 （引擎内部使用）
package types
