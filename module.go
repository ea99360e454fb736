package enet

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-enet/config"
	"github.com/dep2p/go-enet/pkg/interfaces"
)

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config    `optional:"true"`
	Engine interfaces.Engine `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Context *Context
}

// ProvideContext 提供引擎会话，应用停止时关闭
func ProvideContext(lc fx.Lifecycle, in ModuleInput) (ModuleOutput, error) {
	var opts []Option
	if in.Config != nil {
		opts = append(opts, WithConfig(in.Config))
	}
	if in.Engine != nil {
		opts = append(opts, WithEngine(in.Engine))
	}

	c, err := Initialize(opts...)
	if err != nil {
		return ModuleOutput{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Close()
			return nil
		},
	})
	return ModuleOutput{Context: c}, nil
}

// ProvideHost 按 Config.Host 创建主机，应用停止时关闭
//
// 主机的停止钩子在 Context 之后注册，因此先于 Context 执行。
func ProvideHost(lc fx.Lifecycle, c *Context) (*Host, error) {
	h, err := c.CreateHostFromConfig(c.Config().Host)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			h.Close()
			return nil
		},
	})
	return h, nil
}

// Module 返回提供 *Context 的 Fx 模块
func Module() fx.Option {
	return fx.Module("enet",
		fx.Provide(ProvideContext),
	)
}

// HostModule 返回提供 *Context 和按配置创建的 *Host 的 Fx 模块
func HostModule() fx.Option {
	return fx.Module("enet",
		fx.Provide(ProvideContext),
		fx.Provide(ProvideHost),
	)
}
