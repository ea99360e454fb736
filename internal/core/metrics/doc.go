// Package metrics 把主机计数器导出为 Prometheus 指标
//
// 引擎的累计计数器是 uint32，溢出回绕且可被调用方清零；HostCollector
// 按快照差值累加成单调的 Prometheus counter，并用 RateMeter 计算最近
// 60 秒的平均收发速率。
//
// # 快速开始
//
//	collector := metrics.NewHostCollector()
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(collector)
//
//	// 服务循环中定期上报
//	collector.Observe("server", host.Stats())
//
// # 导出的指标
//
//	enet_host_peers{host}                     节点槽位数
//	enet_host_connected_peers{host}           已连接节点数
//	enet_host_sent_bytes_total{host}          累计发送字节数
//	enet_host_sent_packets_total{host}        累计发送包数
//	enet_host_received_bytes_total{host}      累计接收字节数
//	enet_host_received_packets_total{host}    累计接收包数
//	enet_host_send_rate_bytes{host}           最近 60 秒平均发送速率（字节/秒）
//	enet_host_receive_rate_bytes{host}        最近 60 秒平均接收速率（字节/秒）
package metrics
