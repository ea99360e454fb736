// Package main 提供 enet 演示程序
//
// server 模式在本地端口等待连接并打印收到的事件；client 模式连接到
// server，连接建立后发送 "abc"，然后持续服务直到 Ctrl+C。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-enet"
	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/internal/core/metrics"
	"github.com/dep2p/go-enet/pkg/lib/log"
)

var logger = log.Logger("enet/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	mode        = flag.String("mode", "server", "运行模式 (server/client)")
	addr        = flag.String("addr", "127.0.0.1:12345", "server 监听地址 / client 连接地址")
	configFile  = flag.String("config", "", "配置文件路径")
	serviceMS   = flag.Int("service-ms", 500, "每次 Service 的等待时间（毫秒）")
	message     = flag.String("message", "abc", "client 连接后发送的数据")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址（空 = 不启用）")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	if *showVersion {
		c, err := enet.Initialize(enet.WithConfig(cfg))
		if err != nil {
			return err
		}
		fmt.Printf("enet %s\n", c.LinkedVersion())
		c.Close()
		return nil
	}

	opts := demoOptions{
		mode:    *mode,
		addr:    *addr,
		service: time.Duration(*serviceMS) * time.Millisecond,
		message: []byte(*message),
	}
	if err := opts.validate(); err != nil {
		return err
	}

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Supply(cfg, opts),
		fx.Provide(func() *metrics.HostCollector { return metrics.NewHostCollector() }),
		enet.Module(),
		fx.Provide(newDemo),
		fx.Invoke(func(*demo) {}),
		fx.Invoke(registerMetricsServer(*metricsAddr)),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	logger.Info("enet 演示程序已启动", "mode", opts.mode, "addr", opts.addr)
	fmt.Println("按 Ctrl+C 退出")

	waitForSignal()
	fmt.Println("\n正在关闭...")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	return app.Stop(stopCtx)
}

// loadConfig 加载配置文件，未指定时使用默认配置
func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(*configFile)
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}
