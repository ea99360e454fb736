// Package engine 实现 go-enet 的参考可靠 UDP 引擎
//
// engine 实现 interfaces.Engine，按照 ENet 的连接模型维护主机的节点表、
// 节点状态机、通道序号、保活和超时。数据报的收发委托给
// interfaces.Network，因此同一套状态机可以运行在真实 UDP（quicnet）
// 或进程内网络（memnet）之上。
//
// # 握手
//
//	发起方                                响应方
//	Connecting      ── CONNECT ──────────> AcknowledgingConnect
//	                <── VERIFY_CONNECT ──  ConnectionPending
//	ConnectionSucceeded（派发 Connect）
//	                ── ACKNOWLEDGE ──────> ConnectionSucceeded（派发 Connect）
//
// 发起方收到 VERIFY_CONNECT 后立即派发 Connect 事件，ACKNOWLEDGE 帧
// 要等到下一次 Flush 或 Service 才发出。
//
// # 断开
//
//	Connected → Disconnecting ── DISCONNECT ──> AcknowledgingDisconnect
//	          <── ACKNOWLEDGE_DISCONNECT ──     Zombie（派发 Disconnect）
//	Zombie（派发 Disconnect）
//
// 派发 Disconnect 事件后槽位被重置为 Disconnected。
//
// # 通道
//
// 可靠帧按通道序号有序交付；不可靠有序帧丢弃比已交付序号更旧的帧；
// 无序帧到达即交付。超过 MTU 且未设置 FlagUnreliableFragment 的
// 不可靠数据包按可靠方式发送。
//
// # 保活与超时
//
// 已连接节点每隔 PingInterval 发送一次 ping，往返时间按 ENet 的
// 平滑算法更新，未应答的 ping 计为丢包，丢包率每 10 秒更新一次。
// 静默超过 TimeoutMaximum，或静默超过 TimeoutMinimum 且连续
// TimeoutLimit 次 ping 未应答时判定超时。
//
// # 带宽
//
// 主机出站带宽和对端通告的入站带宽分别由 golang.org/x/time/rate
// 令牌桶限制，只对数据帧生效。
//
// # 线路格式
//
// 帧使用 protowire 编码，载荷可选 s2 压缩。线路格式不兼容 C 版 ENet。
package engine
