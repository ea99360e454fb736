package types

// ============================================================================
//                              HostStats - 主机统计
// ============================================================================

// HostStats 主机计数器快照
//
// 累计值由引擎维护，溢出时回绕，调用方负责按需清零。
type HostStats struct {
	// PeerCount 节点槽位数
	PeerCount int

	// ConnectedPeers 已连接节点数
	ConnectedPeers int

	// ChannelLimit 入站连接的最大通道数
	ChannelLimit int

	// TotalSentData 累计发送字节数
	TotalSentData uint32

	// TotalSentPackets 累计发送包数
	TotalSentPackets uint32

	// TotalReceivedData 累计接收字节数
	TotalReceivedData uint32

	// TotalReceivedPackets 累计接收包数
	TotalReceivedPackets uint32
}

// FreePeers 空闲的节点槽位数
func (s HostStats) FreePeers() int {
	if s.ConnectedPeers >= s.PeerCount {
		return 0
	}
	return s.PeerCount - s.ConnectedPeers
}
