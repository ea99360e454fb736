package metrics

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-enet/pkg/lib/log"
	"github.com/dep2p/go-enet/pkg/types"
)

var logger = log.Logger("enet/metrics")

const namespace = "enet"

var _ prometheus.Collector = (*HostCollector)(nil)

// ============================================================================
//                              HostCollector
// ============================================================================

// HostCollector 主机计数器的 Prometheus 收集器
//
// Collect 输出每个主机最近一次 Observe 的快照。Observe 与 Collect
// 可以在不同 goroutine 中调用。
type HostCollector struct {
	mu    sync.Mutex
	clock clock.Clock
	hosts map[string]*hostSeries

	peers           *prometheus.Desc
	connectedPeers  *prometheus.Desc
	sentBytes       *prometheus.Desc
	sentPackets     *prometheus.Desc
	receivedBytes   *prometheus.Desc
	receivedPackets *prometheus.Desc
	sendRate        *prometheus.Desc
	receiveRate     *prometheus.Desc
}

// hostSeries 单个主机的累计状态
type hostSeries struct {
	last types.HostStats

	sentBytes       uint64
	sentPackets     uint64
	receivedBytes   uint64
	receivedPackets uint64

	sendRate    *RateMeter
	receiveRate *RateMeter
}

// Option HostCollector 配置选项
type Option func(*HostCollector)

// WithClock 设置速率计算使用的时钟
func WithClock(c clock.Clock) Option {
	return func(hc *HostCollector) {
		hc.clock = c
	}
}

// NewHostCollector 创建收集器
func NewHostCollector(opts ...Option) *HostCollector {
	labels := []string{"host"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "host", name), help, labels, nil)
	}
	hc := &HostCollector{
		clock:           clock.New(),
		hosts:           make(map[string]*hostSeries),
		peers:           desc("peers", "Number of peer slots allocated by the host."),
		connectedPeers:  desc("connected_peers", "Number of connected peers."),
		sentBytes:       desc("sent_bytes_total", "Bytes sent by the host."),
		sentPackets:     desc("sent_packets_total", "Datagrams sent by the host."),
		receivedBytes:   desc("received_bytes_total", "Bytes received by the host."),
		receivedPackets: desc("received_packets_total", "Datagrams received by the host."),
		sendRate:        desc("send_rate_bytes", "Average send rate over the last minute in bytes per second."),
		receiveRate:     desc("receive_rate_bytes", "Average receive rate over the last minute in bytes per second."),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// Observe 记录主机的计数器快照
//
// 累计值按与上次快照的差值累加，uint32 回绕按模运算处理。主机计数器
// 被清零后应先调用 Forget，否则差值会被当作回绕。
func (c *HostCollector) Observe(host string, s types.HostStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hs, ok := c.hosts[host]
	if !ok {
		hs = &hostSeries{
			sendRate:    NewRateMeter(c.clock),
			receiveRate: NewRateMeter(c.clock),
		}
		c.hosts[host] = hs
		logger.Debug("开始收集主机指标", "host", host)
	}

	sentBytes := s.TotalSentData - hs.last.TotalSentData
	receivedBytes := s.TotalReceivedData - hs.last.TotalReceivedData
	hs.sentBytes += uint64(sentBytes)
	hs.sentPackets += uint64(s.TotalSentPackets - hs.last.TotalSentPackets)
	hs.receivedBytes += uint64(receivedBytes)
	hs.receivedPackets += uint64(s.TotalReceivedPackets - hs.last.TotalReceivedPackets)
	hs.sendRate.Add(int64(sentBytes))
	hs.receiveRate.Add(int64(receivedBytes))
	hs.last = s
}

// Forget 移除主机的全部指标
func (c *HostCollector) Forget(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hosts, host)
}

// Describe 实现 prometheus.Collector
func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.peers
	ch <- c.connectedPeers
	ch <- c.sentBytes
	ch <- c.sentPackets
	ch <- c.receivedBytes
	ch <- c.receivedPackets
	ch <- c.sendRate
	ch <- c.receiveRate
}

// Collect 实现 prometheus.Collector
func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for host, hs := range c.hosts {
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, host)
		}
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), host)
		}
		gauge(c.peers, float64(hs.last.PeerCount))
		gauge(c.connectedPeers, float64(hs.last.ConnectedPeers))
		counter(c.sentBytes, hs.sentBytes)
		counter(c.sentPackets, hs.sentPackets)
		counter(c.receivedBytes, hs.receivedBytes)
		counter(c.receivedPackets, hs.receivedPackets)
		gauge(c.sendRate, hs.sendRate.Rate())
		gauge(c.receiveRate, hs.receiveRate.Rate())
	}
}
