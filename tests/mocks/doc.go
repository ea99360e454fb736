// Package mocks 提供引擎接口的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockEngine: 模拟 interfaces.Engine，记录每次调用
//   - MockRawHost: 模拟 interfaces.RawHost，计数器可直接赋值
//   - MockRawPeer: 模拟 interfaces.RawPeer，状态和统计可直接赋值
//   - MockRawPacket: 模拟 interfaces.RawPacket
//
// # 设计原则
//
// 1. 函数式注入: 关键方法支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 记录调用参数，便于验证"校验失败时不调用引擎"一类的性质
// 3. 事件队列: Events 中的记录依次由 HostService/HostCheckEvents 返回
//
// # 使用示例
//
//	eng := mocks.NewMockEngine()
//	ctx, err := enet.Initialize(enet.WithEngine(eng))
//	require.NoError(t, err)
//	defer ctx.Close()
//
//	_, err = ctx.CreateHost(enet.MaxPeers + 1)
//	require.ErrorIs(t, err, enet.ErrTooManyPeers)
//	require.Empty(t, eng.HostCreateCalls())
package mocks
