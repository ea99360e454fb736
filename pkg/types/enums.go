package types

// ============================================================================
//                              PeerState - 节点连接状态
// ============================================================================

// PeerState 节点连接状态
//
// 状态只由引擎根据协议流量或显式的 Peer 操作修改，对外只读：
//
//	Disconnected → Connecting → AcknowledgingConnect → ConnectionPending
//	  → ConnectionSucceeded → Connected
//	  → [DisconnectLater] → Disconnecting → AcknowledgingDisconnect
//	  → Zombie → （槽位回收）Disconnected
type PeerState int

const (
	// PeerStateDisconnected 未连接（空闲槽位）
	PeerStateDisconnected PeerState = iota
	// PeerStateConnecting 已发出连接请求，等待对端确认
	PeerStateConnecting
	// PeerStateAcknowledgingConnect 收到连接请求，正在确认
	PeerStateAcknowledgingConnect
	// PeerStateConnectionPending 已确认连接请求，等待对端应答
	PeerStateConnectionPending
	// PeerStateConnectionSucceeded 握手完成，等待派发 Connect 事件
	PeerStateConnectionSucceeded
	// PeerStateConnected 已连接
	PeerStateConnected
	// PeerStateDisconnectLater 队列发送完毕后断开
	PeerStateDisconnectLater
	// PeerStateDisconnecting 已发出断开请求，等待对端确认
	PeerStateDisconnecting
	// PeerStateAcknowledgingDisconnect 收到断开请求，正在确认
	PeerStateAcknowledgingDisconnect
	// PeerStateZombie 连接已终止，等待派发 Disconnect 事件后回收
	PeerStateZombie
)

// String 返回状态的字符串表示
func (s PeerState) String() string {
	switch s {
	case PeerStateDisconnected:
		return "Disconnected"
	case PeerStateConnecting:
		return "Connecting"
	case PeerStateAcknowledgingConnect:
		return "AcknowledgingConnect"
	case PeerStateConnectionPending:
		return "ConnectionPending"
	case PeerStateConnectionSucceeded:
		return "ConnectionSucceeded"
	case PeerStateConnected:
		return "Connected"
	case PeerStateDisconnectLater:
		return "DisconnectLater"
	case PeerStateDisconnecting:
		return "Disconnecting"
	case PeerStateAcknowledgingDisconnect:
		return "AcknowledgingDisconnect"
	case PeerStateZombie:
		return "Zombie"
	default:
		return "Unknown"
	}
}

// IsValid 检查是否为已定义的状态
func (s PeerState) IsValid() bool {
	return s >= PeerStateDisconnected && s <= PeerStateZombie
}

// IsActive 槽位是否被占用（既非 Disconnected 也非 Zombie）
func (s PeerState) IsActive() bool {
	return s != PeerStateDisconnected && s != PeerStateZombie
}

// ============================================================================
//                              EventType - 事件类型
// ============================================================================

// EventType 引擎事件类型
//
// 引擎保证该集合是封闭的，出现其它值意味着内存损坏或版本不匹配。
type EventType int

const (
	// EventTypeNone 没有事件
	EventTypeNone EventType = iota
	// EventTypeConnect 连接建立
	EventTypeConnect
	// EventTypeDisconnect 连接断开
	EventTypeDisconnect
	// EventTypeReceive 收到数据包
	EventTypeReceive
)

// String 返回事件类型的字符串表示
func (t EventType) String() string {
	switch t {
	case EventTypeNone:
		return "none"
	case EventTypeConnect:
		return "connect"
	case EventTypeDisconnect:
		return "disconnect"
	case EventTypeReceive:
		return "receive"
	default:
		return "unknown"
	}
}
