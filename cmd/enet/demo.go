package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/dep2p/go-enet"
	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/internal/core/metrics"
)

// ============================================================================
//                              演示参数
// ============================================================================

type demoOptions struct {
	mode    string
	addr    string
	service time.Duration
	message []byte
}

func (o demoOptions) validate() error {
	switch o.mode {
	case "server", "client":
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
	if o.service < 0 {
		return errors.New("service timeout must not be negative")
	}
	if o.mode == "client" && len(o.message) == 0 {
		return errors.New("message must not be empty")
	}
	return nil
}

// ============================================================================
//                              服务循环
// ============================================================================

// demo 在独立 goroutine 中运行服务循环
//
// 主机只在该 goroutine 中使用；停止时先结束循环再关闭主机。
type demo struct {
	opts      demoOptions
	host      *enet.Host
	remote    *enet.Peer
	collector *metrics.HostCollector

	stop chan struct{}
	done chan struct{}
}

type demoParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Context   *enet.Context
	Config    *config.Config
	Options   demoOptions
	Collector *metrics.HostCollector
}

func newDemo(p demoParams) (*demo, error) {
	d := &demo{
		opts:      p.Options,
		collector: p.Collector,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	hc := p.Config.Host
	switch d.opts.mode {
	case "server":
		bind, err := enet.ParseAddress(d.opts.addr)
		if err != nil {
			return nil, fmt.Errorf("listen address: %w", err)
		}
		d.host, err = p.Context.CreateServerHost(bind, hc.PeerCount, hc.ChannelLimit, hc.IncomingBandwidth, hc.OutgoingBandwidth)
		if err != nil {
			return nil, err
		}
		fmt.Printf("等待连接: %s\n", d.host.Address())

	case "client":
		remote, err := resolve(p.Context, d.opts.addr)
		if err != nil {
			return nil, err
		}
		// 56 Kbps 下行，14 Kbps 上行
		d.host, err = p.Context.CreateClientHost(1, 57600/8, 14400/8)
		if err != nil {
			return nil, err
		}
		d.remote, err = d.host.Connect(remote, 2, 0)
		if err != nil {
			d.host.Close()
			return nil, err
		}
		fmt.Printf("正在连接: %s\n", remote)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go d.loop()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(d.stop)
			select {
			case <-d.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			d.close()
			return nil
		},
	})
	return d, nil
}

func resolve(c *enet.Context, hostport string) (enet.Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return enet.Address{}, fmt.Errorf("remote address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return enet.Address{}, fmt.Errorf("remote port %q: %w", portStr, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.ResolveAddress(ctx, host, uint16(port))
}

func (d *demo) loop() {
	defer close(d.done)

	for iter := 0; ; iter++ {
		select {
		case <-d.stop:
			return
		default:
		}

		ev, err := d.host.Service(d.opts.service)
		if err != nil {
			logger.Warn("服务失败", "error", err)
			continue
		}
		d.collector.Observe(d.opts.mode, d.host.Stats())
		if ev == nil {
			continue
		}
		fmt.Printf("[%d] %s\n", iter, ev)
		d.handle(ev)
		ev.Release()
	}
}

func (d *demo) handle(ev *enet.Event) {
	switch ev.Type {
	case enet.EventConnect:
		if d.opts.mode == "client" {
			if err := d.remote.Send(0, enet.NewPacket(d.opts.message, enet.FlagReliable)); err != nil {
				logger.Warn("发送失败", "error", err)
				return
			}
			d.host.Flush()
			fmt.Printf("已发送 %q\n", d.opts.message)
			return
		}
		if d.remote == nil {
			d.remote = ev.Peer.Clone()
		}

	case enet.EventDisconnect:
		if d.remote != nil && d.remote.Equal(ev.Peer) && d.opts.mode == "server" {
			d.remote.Close()
			d.remote = nil
		}

	case enet.EventReceive:
		fmt.Printf("收到 %q (channel %d)\n", ev.Packet.Data(), ev.ChannelID)
	}
}

func (d *demo) close() {
	if d.remote != nil {
		if d.opts.mode == "client" && d.remote.State() == enet.PeerStateConnected {
			d.remote.Disconnect(0)
			d.host.Flush()
		}
		d.remote.Close()
	}
	d.host.Close()
}

// ============================================================================
//                              指标
// ============================================================================

// registerMetricsServer 在 addr 非空时通过 HTTP 导出主机指标
func registerMetricsServer(addr string) func(fx.Lifecycle, *metrics.HostCollector) error {
	return func(lc fx.Lifecycle, collector *metrics.HostCollector) error {
		if addr == "" {
			return nil
		}
		registry := prometheus.NewRegistry()
		if err := registry.Register(collector); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Warn("指标服务失败", "error", err)
					}
				}()
				logger.Info("指标服务已启动", "addr", ln.Addr())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
		return nil
	}
}
